package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hashscope/hashscope/internal/catalog"
)

// RegisterDataRoutes wires the metered data plane behind API key auth and
// per-key rate limiting.
func RegisterDataRoutes(r fiber.Router, h *catalog.Handler, keyAuth, rateLimit fiber.Handler) {
	group := r.Group("/data", keyAuth, rateLimit)
	group.Get("", h.List)
	group.Get("/:sourceId", h.Serve)
}
