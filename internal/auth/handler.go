package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hashscope/hashscope/internal/identity"
	"github.com/hashscope/hashscope/internal/ledger"
)

const verifierKeyHeader = "X-Verifier-Key"

// Handler exposes token issuance, refresh and logout endpoints.
type Handler struct {
	svc *Service
}

// NewHandler builds an auth HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type tokenRequest struct {
	WalletAddress string `json:"wallet_address"`
}

type tokenResponse struct {
	UserID        string `json:"user_id"`
	WalletAddress string `json:"wallet_address"`
	AccessToken   string `json:"access_token"`
	RefreshToken  string `json:"refresh_token"`
	ExpiresIn     int64  `json:"expires_in"`
	TokenVersion  int    `json:"token_version"`
}

// Token issues a token pair for a wallet whose signature the external
// verifier has already checked.
func (h *Handler) Token(c *fiber.Ctx) error {
	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	address, err := ledger.NormalizeAddress(req.WalletAddress)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, pair, err := h.svc.IssueForWallet(c.UserContext(), c.Get(verifierKeyHeader), address)
	if err != nil {
		switch {
		case errors.Is(err, ErrBadVerifierKey):
			return fiber.NewError(http.StatusForbidden, "invalid verifier key")
		case errors.Is(err, identity.ErrNotFound):
			return fiber.NewError(http.StatusUnauthorized, "unknown wallet")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusOK).JSON(tokenResponse{
		UserID:        user.ID,
		WalletAddress: user.WalletAddress,
		AccessToken:   pair.AccessToken,
		RefreshToken:  pair.RefreshToken,
		ExpiresIn:     pair.ExpiresIn,
		TokenVersion:  user.TokenVersion,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh issues a new access token using a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, exp, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"access_token": token, "expires_in": exp})
}

// Logout invalidates existing tokens by bumping the token version.
func (h *Handler) Logout(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	if err := h.svc.Logout(c.UserContext(), uid); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}
