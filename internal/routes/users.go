package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hashscope/hashscope/internal/identity"
	"github.com/hashscope/hashscope/internal/ledger"
)

// RegisterUserRoutes wires public registration.
func RegisterUserRoutes(r fiber.Router, svc *identity.Service, logger *slog.Logger) {
	r.Post("/users", func(c *fiber.Ctx) error {
		var req struct {
			WalletAddress string `json:"wallet_address"`
			Username      string `json:"username"`
			Email         string `json:"email"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		user, err := svc.Register(c.UserContext(), identity.RegisterInput{
			WalletAddress: req.WalletAddress,
			Username:      req.Username,
			Email:         req.Email,
		})
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrWalletTaken):
				return fiber.NewError(http.StatusConflict, "wallet address already registered")
			case errors.Is(err, ledger.ErrInvalidAddress):
				return fiber.NewError(http.StatusBadRequest, err.Error())
			default:
				logger.Error("register user", "error", err)
				return fiber.NewError(http.StatusInternalServerError, "registration failed")
			}
		}

		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"user_id":        user.ID,
			"wallet_address": user.WalletAddress,
			"username":       user.Username,
			"created_at":     user.CreatedAt,
		})
	})
}

// RegisterAccountRoutes wires the authenticated profile and balance endpoints.
func RegisterAccountRoutes(r fiber.Router, repo identity.Repository, ledgerBackend ledger.Ledger) {
	r.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		user, err := repo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":        user.ID,
			"wallet_address": user.WalletAddress,
			"username":       user.Username,
			"email":          user.Email,
			"token_version":  user.TokenVersion,
			"created_at":     user.CreatedAt,
			"last_login":     user.LastLogin,
		})
	})

	r.Get("/users/balance", func(c *fiber.Ctx) error {
		wallet, _ := c.Locals("user_wallet").(string)
		if wallet == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		balance, err := ledgerBackend.Balance(c.UserContext(), wallet)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"wallet_address": wallet, "balance": balance})
	})
}
