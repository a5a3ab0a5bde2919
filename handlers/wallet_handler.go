package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"github.com/Micheal-18/tick.backend/models"
	"github.com/Micheal-18/tick.backend/services"
	"github.com/Micheal-18/tick.backend/store"
)

type WalletHandler struct {
	store  store.Store
	ledger *services.LedgerService
}

func NewWalletHandler(st store.Store, ledger *services.LedgerService) *WalletHandler {
	return &WalletHandler{store: st, ledger: ledger}
}

// GetWallet - GET /api/v1/wallets/{ownerId}
func (h *WalletHandler) GetWallet(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Authentication required", nil)
	}

	ownerID := e.Request.PathValue("ownerId")
	if ownerID != e.Auth.Id && !e.Auth.IsSuperuser() {
		return apis.NewForbiddenError("Cannot view another wallet", nil)
	}

	wallet, err := h.store.WalletByOwner(ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apis.NewNotFoundError("Wallet not found", nil)
		}
		return apis.NewApiError(http.StatusInternalServerError, "Failed to load wallet", err)
	}

	return e.JSON(http.StatusOK, walletResponse(wallet))
}

// ReconcileWallet - GET /api/v1/wallets/{ownerId}/reconcile
//
// Recomputes the wallet's balances from its ledger entries and reports
// any drift against the stored values.
func (h *WalletHandler) ReconcileWallet(e *core.RequestEvent) error {
	if e.Auth == nil || !e.Auth.IsSuperuser() {
		return apis.NewForbiddenError("Superuser access required", nil)
	}

	ownerID := e.Request.PathValue("ownerId")
	rec, err := h.ledger.ReconcileWallet(e.Request.Context(), ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apis.NewNotFoundError("Wallet not found", nil)
		}
		return apis.NewApiError(http.StatusInternalServerError, "Reconciliation failed", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"wallet":        walletResponse(rec.Wallet),
		"ledger_total":  rec.LedgerTotal,
		"balance_total": rec.BalanceTotal,
		"drift":         rec.Drift,
	})
}

// GetTicket - GET /api/v1/tickets/{reference}
func (h *WalletHandler) GetTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Authentication required", nil)
	}

	reference := e.Request.PathValue("reference")
	ticket, err := h.store.TicketByReference(reference)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apis.NewNotFoundError("Ticket not found", nil)
		}
		return apis.NewApiError(http.StatusInternalServerError, "Failed to load ticket", err)
	}

	if !e.Auth.IsSuperuser() && ticket.BuyerEmail != e.Auth.GetString("email") {
		return apis.NewForbiddenError("Cannot view another buyer's ticket", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"id":         ticket.ID,
		"reference":  ticket.Reference,
		"event_id":   ticket.EventID,
		"label":      ticket.Label,
		"quantity":   ticket.Quantity,
		"amount":     ticket.Amount,
		"status":     ticket.Status,
		"used":       ticket.Used,
		"qr_payload": ticket.QRPayload,
	})
}

func walletResponse(w *models.Wallet) map[string]any {
	return map[string]any{
		"owner_id":        w.OwnerID,
		"balance":         w.Balance,
		"pending_balance": w.PendingBalance,
		"settled_balance": w.SettledBalance,
		"total_earned":    w.TotalEarned,
		"updated_at":      w.UpdatedAt,
	}
}
