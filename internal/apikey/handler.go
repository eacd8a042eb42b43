package apikey

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes API key management endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an API key HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name            string `json:"name"`
	RateLimitPerMin int    `json:"rate_limit_per_minute"`
}

type keyResponse struct {
	KeyID           string `json:"key_id"`
	Name            string `json:"name"`
	Active          bool   `json:"is_active"`
	RateLimitPerMin int    `json:"rate_limit_per_minute"`
	CallCount       int64  `json:"call_count"`
	LastUsedAt      any    `json:"last_used_at"`
	CreatedAt       any    `json:"created_at"`
	ExpiresAt       any    `json:"expires_at"`
}

func toResponse(key Key) keyResponse {
	return keyResponse{
		KeyID:           key.KeyID,
		Name:            key.Name,
		Active:          key.Active,
		RateLimitPerMin: key.RateLimitPerMin,
		CallCount:       key.CallCount,
		LastUsedAt:      key.LastUsedAt,
		CreatedAt:       key.CreatedAt,
		ExpiresAt:       key.ExpiresAt,
	}
}

// Create issues a new API key. The secret is only present in this response.
func (h *Handler) Create(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}

	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	key, secret, err := h.service.Create(c.UserContext(), uid, CreateInput{Name: req.Name, RateLimitPerMin: req.RateLimitPerMin})
	if err != nil {
		if errors.Is(err, ErrNoDeposit) {
			return fiber.NewError(http.StatusPaymentRequired, "insufficient deposited balance; deposit tokens to create API keys")
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	resp := fiber.Map{
		"key_id":                key.KeyID,
		"secret_key":            secret,
		"name":                  key.Name,
		"is_active":             key.Active,
		"rate_limit_per_minute": key.RateLimitPerMin,
		"created_at":            key.CreatedAt,
		"expires_at":            key.ExpiresAt,
	}
	return c.Status(http.StatusCreated).JSON(resp)
}

// List returns the caller's keys without secrets.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}

	keys, err := h.service.List(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	items := make([]keyResponse, 0, len(keys))
	for _, key := range keys {
		items = append(items, toResponse(key))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"api_keys": items})
}

// Get returns details for one of the caller's keys.
func (h *Handler) Get(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}

	key, err := h.service.Get(c.UserContext(), uid, c.Params("keyId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "api key not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(key))
}

// Delete removes one of the caller's keys.
func (h *Handler) Delete(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}

	if err := h.service.Delete(c.UserContext(), uid, c.Params("keyId")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "api key not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "deleted"})
}
