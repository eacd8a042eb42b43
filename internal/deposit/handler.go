package deposit

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hashscope/hashscope/internal/ledger"
)

// Handler exposes deposit notification endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a deposit HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type notifyRequest struct {
	TxHash string `json:"transaction_hash"`
	Amount int64  `json:"amount"`
}

type notifyResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	NewBalance    int64  `json:"new_balance"`
}

// Notify records a confirmed on-chain deposit and credits the caller's balance.
func (h *Handler) Notify(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}

	var req notifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Notify(c.UserContext(), NotifyInput{UserID: uid, TxHash: req.TxHash, Amount: req.Amount})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateHash):
			return fiber.NewError(http.StatusConflict, "transaction already processed")
		case errors.Is(err, ErrVerificationFailed):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ledger.ErrZeroAmount):
			return fiber.NewError(http.StatusBadRequest, "amount must be positive")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(notifyResponse{
		TransactionID: res.TransactionID,
		Status:        res.Status,
		NewBalance:    res.NewBalance,
	})
}

// History lists the caller's recent deposit records.
func (h *Handler) History(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}

	txs, err := h.service.History(c.UserContext(), uid, c.QueryInt("limit", 50))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	items := make([]fiber.Map, 0, len(txs))
	for _, tx := range txs {
		items = append(items, fiber.Map{
			"transaction_id":   tx.ID,
			"transaction_hash": tx.TxHash,
			"amount":           tx.Amount,
			"status":           tx.Status,
			"created_at":       tx.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"deposits": items})
}
