package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hashscope/hashscope/internal/apikey"
	"github.com/hashscope/hashscope/internal/usage"
)

// RegisterKeyRoutes wires API key management and per-key usage history.
func RegisterKeyRoutes(r fiber.Router, h *apikey.Handler, keys *apikey.Service, meter *usage.Service) {
	group := r.Group("/keys")
	group.Post("", h.Create)
	group.Get("", h.List)
	group.Get("/:keyId", h.Get)
	group.Delete("/:keyId", h.Delete)

	group.Get("/:keyId/usage", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		keyID := c.Params("keyId")

		// Ownership check before exposing usage records.
		if _, err := keys.Get(c.UserContext(), uid, keyID); err != nil {
			if errors.Is(err, apikey.ErrNotFound) {
				return fiber.NewError(http.StatusNotFound, "API key not found")
			}
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		records, err := meter.History(c.UserContext(), keyID, c.QueryInt("limit", 50))
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		items := make([]fiber.Map, 0, len(records))
		for _, rec := range records {
			items = append(items, fiber.Map{
				"id":        rec.ID,
				"source":    rec.Source,
				"method":    rec.Method,
				"fee":       rec.Fee,
				"status":    rec.Status,
				"timestamp": rec.Timestamp,
			})
		}
		return c.JSON(fiber.Map{"key_id": keyID, "usage": items})
	})
}
