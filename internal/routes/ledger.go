package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hashscope/hashscope/internal/ledger"
)

// RegisterLedgerRoutes wires ledger reads plus the privileged operations.
// The privileged endpoints pass the authenticated wallet as the caller;
// the ledger itself rejects anyone but the current owner.
func RegisterLedgerRoutes(r fiber.Router, l ledger.Ledger) {
	group := r.Group("/ledger")

	group.Get("/owner", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"owner": l.Owner()})
	})

	group.Get("/held", func(c *fiber.Ctx) error {
		held, err := l.HeldFunds(c.UserContext())
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"held_funds": held})
	})

	group.Get("/balance/:address", func(c *fiber.Ctx) error {
		address, err := ledger.NormalizeAddress(c.Params("address"))
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		balance, err := l.Balance(c.UserContext(), address)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"address": address, "balance": balance})
	})

	group.Post("/withdraw", func(c *fiber.Ctx) error {
		caller, _ := c.Locals("user_wallet").(string)
		var req struct {
			Account string `json:"account"`
			Amount  int64  `json:"amount"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		account, err := ledger.NormalizeAddress(req.Account)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		remaining, err := l.Withdraw(c.UserContext(), caller, account, req.Amount)
		if err != nil {
			return ledgerError(err)
		}
		return c.JSON(fiber.Map{"account": account, "balance": remaining})
	})

	group.Post("/deduct", func(c *fiber.Ctx) error {
		caller, _ := c.Locals("user_wallet").(string)
		var req struct {
			Account   string `json:"account"`
			Amount    int64  `json:"amount"`
			Recipient string `json:"recipient"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		account, err := ledger.NormalizeAddress(req.Account)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		recipient, err := ledger.NormalizeAddress(req.Recipient)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		remaining, err := l.DeductForUsage(c.UserContext(), caller, account, req.Amount, recipient)
		if err != nil {
			return ledgerError(err)
		}
		return c.JSON(fiber.Map{"account": account, "balance": remaining})
	})

	group.Post("/transfer-ownership", func(c *fiber.Ctx) error {
		caller, _ := c.Locals("user_wallet").(string)
		var req struct {
			NewOwner string `json:"new_owner"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if err := l.TransferOwnership(c.UserContext(), caller, req.NewOwner); err != nil {
			return ledgerError(err)
		}
		return c.JSON(fiber.Map{"owner": l.Owner()})
	})
}

func ledgerError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, "owner only")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusPaymentRequired, "insufficient balance")
	case errors.Is(err, ledger.ErrInsufficientReserve):
		return fiber.NewError(http.StatusConflict, "insufficient held funds")
	case errors.Is(err, ledger.ErrZeroAmount), errors.Is(err, ledger.ErrInvalidAddress):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrPayoutFailed):
		return fiber.NewError(http.StatusBadGateway, "payout failed")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
