package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hashscope/hashscope/internal/deposit"
)

// RegisterDepositRoutes wires deposit notification and history endpoints.
func RegisterDepositRoutes(r fiber.Router, h *deposit.Handler) {
	group := r.Group("/deposits")
	group.Post("/notify", h.Notify)
	group.Get("", h.History)
}
