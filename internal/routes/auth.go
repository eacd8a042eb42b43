package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hashscope/hashscope/internal/auth"
)

// RegisterAuthRoutes wires the public token endpoints. Signature checking
// happens in the external verifier service; the token endpoint trusts its
// shared key header.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler) {
	group := r.Group("/auth")
	group.Post("/token", h.Token)
	group.Post("/refresh", h.Refresh)
}
