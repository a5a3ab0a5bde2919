package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"github.com/Micheal-18/tick.backend/internal/services/paystack"
	"github.com/Micheal-18/tick.backend/internal/status"
	"github.com/Micheal-18/tick.backend/monitoring"
	"github.com/Micheal-18/tick.backend/store"
	"github.com/Micheal-18/tick.backend/utils"
)

// TransactionInitializer is the slice of the gateway the payment
// handler needs.
type TransactionInitializer interface {
	InitializeTransaction(ctx context.Context, req *paystack.InitializeRequest) (*paystack.Authorization, error)
}

type PaymentHandler struct {
	store   store.Store
	gateway TransactionInitializer
	logger  *slog.Logger
}

func NewPaymentHandler(st store.Store, gateway TransactionInitializer, logger *slog.Logger) *PaymentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentHandler{store: st, gateway: gateway, logger: logger}
}

type initializePaymentRequest struct {
	EventID   string `json:"event_id"`
	Quantity  int    `json:"quantity"`
	BuyerName string `json:"buyer_name"`
}

// InitializePayment - POST /api/v1/payments/initialize
//
// Starts a hosted checkout for a ticket purchase. The reference minted
// here is the correlation key for the whole lifecycle: the charge
// webhook, the ticket and the ledger entry all carry it.
func (h *PaymentHandler) InitializePayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Authentication required", nil)
	}

	var req initializePaymentRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if req.EventID == "" {
		return apis.NewBadRequestError("event_id is required", nil)
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	event, err := h.store.EventByID(req.EventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apis.NewNotFoundError("Event not found", nil)
		}
		return apis.NewApiError(http.StatusInternalServerError, "Failed to load event", err)
	}

	buyerName := req.BuyerName
	if buyerName == "" {
		buyerName = e.Auth.GetString("name")
	}

	reference := utils.NewReference("TK")
	amount := event.TicketPrice * int64(req.Quantity)

	auth, err := h.gateway.InitializeTransaction(e.Request.Context(), &paystack.InitializeRequest{
		Email:     e.Auth.GetString("email"),
		Amount:    amount,
		Reference: reference,
		Metadata: paystack.Metadata{
			EventID:        event.ID,
			TicketLabel:    event.TicketLabel,
			TicketQuantity: req.Quantity,
			BuyerName:      buyerName,
		},
	})
	if err != nil {
		h.logger.Error("payment: initialize failed", "event_id", event.ID, "error", err)
		if errors.Is(err, status.ErrUpstreamUnavailable) {
			return apis.NewApiError(http.StatusServiceUnavailable, "Payment gateway unavailable", nil)
		}
		return apis.NewApiError(http.StatusInternalServerError, "Failed to initialize payment", nil)
	}

	monitoring.TrackPaymentInitialized()

	return e.JSON(http.StatusOK, map[string]any{
		"authorization_url": auth.AuthorizationURL,
		"access_code":       auth.AccessCode,
		"reference":         auth.Reference,
		"amount":            amount,
	})
}
