package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"github.com/Micheal-18/tick.backend/internal/status"
	"github.com/Micheal-18/tick.backend/models"
	"github.com/Micheal-18/tick.backend/monitoring"
	"github.com/Micheal-18/tick.backend/security"
	"github.com/Micheal-18/tick.backend/services"
	"github.com/Micheal-18/tick.backend/store"
)

type WithdrawalHandler struct {
	withdrawals *services.WithdrawalService
	limiter     *security.RateLimiter
	rateLimit   int
	rateWindow  time.Duration
	logger      *slog.Logger
}

func NewWithdrawalHandler(ws *services.WithdrawalService, limiter *security.RateLimiter, limit int, window time.Duration, logger *slog.Logger) *WithdrawalHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WithdrawalHandler{
		withdrawals: ws,
		limiter:     limiter,
		rateLimit:   limit,
		rateWindow:  window,
		logger:      logger,
	}
}

type withdrawalRequest struct {
	OwnerID string `json:"owner_id"`
	Amount  int64  `json:"amount"`
}

// RequestWithdrawal - POST /api/v1/withdrawals
//
// Organizers withdraw from their own wallet. Superusers may withdraw on
// behalf of any wallet, including the platform wallet.
func (h *WithdrawalHandler) RequestWithdrawal(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Authentication required", nil)
	}

	var req withdrawalRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	ownerID := req.OwnerID
	if ownerID == "" {
		ownerID = e.Auth.Id
	}

	isAdmin := e.Auth.IsSuperuser()
	if ownerID != e.Auth.Id && !isAdmin {
		return apis.NewForbiddenError("Cannot withdraw from another wallet", nil)
	}
	if ownerID == models.PlatformOwnerID && !isAdmin {
		return apis.NewForbiddenError("Platform withdrawals require superuser access", nil)
	}

	if req.Amount <= 0 {
		return apis.NewBadRequestError("Amount must be positive", nil)
	}

	if !h.limiter.Allow(e.Request.Context(), "withdraw:"+e.Auth.Id, h.rateLimit, h.rateWindow) {
		monitoring.TrackWithdrawal("rate_limited")
		return apis.NewApiError(http.StatusTooManyRequests, "Too many withdrawal requests", nil)
	}

	wr, err := h.withdrawals.Request(e.Request.Context(), ownerID, req.Amount)
	switch {
	case err == nil:
		return e.JSON(http.StatusOK, map[string]any{
			"reference": wr.Reference,
			"amount":    wr.Amount,
			"status":    string(wr.Status),
		})

	case errors.Is(err, status.ErrInsufficientBalance):
		return apis.NewBadRequestError("Insufficient settled balance", nil)

	case errors.Is(err, store.ErrNotFound):
		return apis.NewNotFoundError("Wallet not found", nil)

	case errors.Is(err, status.ErrUpstreamUnavailable):
		// funds already restored by the failure path
		return apis.NewApiError(http.StatusServiceUnavailable, "Payout gateway unavailable, withdrawal reversed", nil)

	case errors.Is(err, status.ErrTransactionConflict):
		return apis.NewApiError(http.StatusConflict, "Wallet busy, retry shortly", nil)

	default:
		h.logger.Error("withdrawal: request failed", "owner_id", ownerID, "error", err)
		return apis.NewApiError(http.StatusInternalServerError, "Withdrawal failed", nil)
	}
}

// SyncSettlements - POST /api/v1/admin/settlements/sync
//
// Polls the gateway's settlement listing and applies each row to the
// ledger. Safe to trigger repeatedly; already-applied settlements are
// skipped by reference.
func (h *WithdrawalHandler) SyncSettlements(e *core.RequestEvent) error {
	if e.Auth == nil || !e.Auth.IsSuperuser() {
		return apis.NewForbiddenError("Superuser access required", nil)
	}

	processed, err := h.withdrawals.SyncSettlements(e.Request.Context())
	if err != nil {
		if errors.Is(err, status.ErrUpstreamUnavailable) {
			return apis.NewApiError(http.StatusServiceUnavailable, "Payment gateway unavailable", nil)
		}
		h.logger.Error("settlement: sync failed", "error", err)
		return apis.NewApiError(http.StatusInternalServerError, "Settlement sync failed", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{"processed": processed})
}
