package catalog

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hashscope/hashscope/internal/usage"
)

// Handler serves the data catalog and the metered data endpoints.
type Handler struct {
	repo  Repository
	meter *usage.Service
}

// NewHandler builds a catalog HTTP handler.
func NewHandler(repo Repository, meter *usage.Service) *Handler {
	return &Handler{repo: repo, meter: meter}
}

// List returns the active data sources with their per-call fees.
func (h *Handler) List(c *fiber.Ctx) error {
	sources, err := h.repo.List(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	items := make([]fiber.Map, 0, len(sources))
	for _, s := range sources {
		items = append(items, fiber.Map{
			"id":           s.ID,
			"name":         s.Name,
			"description":  s.Description,
			"fee_per_call": s.FeePerCall,
			"currency":     s.Currency,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"sources": items})
}

// Serve returns the latest value for a source and charges the caller's
// deposited balance, routing the fee to the source provider. Requires API-key
// authentication upstream.
func (h *Handler) Serve(c *fiber.Ctx) error {
	source, err := h.repo.Get(c.UserContext(), c.Params("sourceId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "data source not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if !source.Active {
		return fiber.NewError(http.StatusGone, "data source is inactive")
	}

	quote := QuoteFor(source, time.Now())

	keyID, _ := c.Locals("api_key_id").(string)
	userID, _ := c.Locals("api_user_id").(string)
	account, _ := c.Locals("api_user_wallet").(string)

	record, err := h.meter.Charge(c.UserContext(), usage.ChargeInput{
		KeyID:    keyID,
		UserID:   userID,
		Account:  account,
		Source:   source.ID,
		Method:   c.Method(),
		Fee:      source.FeePerCall,
		Provider: source.ProviderAddress,
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"source":     quote.Source,
		"value":      quote.Value,
		"currency":   quote.Currency,
		"timestamp":  quote.Timestamp,
		"fee":        record.Fee,
		"fee_status": record.Status,
	})
}
