package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"github.com/Micheal-18/tick.backend/internal/services/paystack"
	"github.com/Micheal-18/tick.backend/internal/status"
	"github.com/Micheal-18/tick.backend/monitoring"
	"github.com/Micheal-18/tick.backend/services"
	"github.com/Micheal-18/tick.backend/utils"
)

// WebhookHandler is the webhook ingress. Contract with the provider:
// authentication failure is the only 401; transient failures are non-2xx
// so the provider redelivers; everything else, including duplicates,
// unrecognized events and missing metadata, is acknowledged with 2xx
// because the provider's retry policy is keyed off the status code.
type WebhookHandler struct {
	secret string
	ledger *services.LedgerService
	locks  *utils.RefLocker
	logger *slog.Logger
}

func NewWebhookHandler(secret string, ledger *services.LedgerService, locks *utils.RefLocker, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		secret: secret,
		ledger: ledger,
		locks:  locks,
		logger: logger,
	}
}

// HandlePaystack - POST /api/v1/webhook/paystack
func (h *WebhookHandler) HandlePaystack(e *core.RequestEvent) error {
	body, err := io.ReadAll(e.Request.Body)
	if err != nil {
		return apis.NewBadRequestError("Invalid body", err)
	}

	// hard gate: no processing on signature mismatch
	signature := e.Request.Header.Get(paystack.SignatureHeader)
	if !paystack.VerifySignature(body, signature, h.secret) {
		monitoring.TrackWebhookEvent("unknown", "unauthorized")
		return apis.NewUnauthorizedError("Invalid signature", status.ErrInvalidSignature)
	}

	code, resp := h.Process(e.Request.Context(), body)
	return e.JSON(code, resp)
}

// Process decodes and applies one authenticated webhook delivery and
// returns the response status and body.
func (h *WebhookHandler) Process(ctx context.Context, body []byte) (int, map[string]any) {
	ev, err := paystack.ParseWebhook(body)
	if err != nil {
		// acknowledged but logged for manual review; the provider does
		// not fix payloads on retry
		h.logger.Warn("webhook: malformed event", "error", err)
		monitoring.TrackWebhookEvent("malformed", "skipped")
		return http.StatusOK, map[string]any{"status": "skipped"}
	}

	switch ev.Kind {
	case paystack.KindChargeSucceeded:
		return h.processCharge(ctx, ev.Charge)

	case paystack.KindTransferSucceeded:
		return h.processTransfer(ctx, ev.Settlement)

	case paystack.KindSettlementSucceeded:
		// settlement ingestion happens on the admin-triggered poll; the
		// webhook variant is acknowledged to avoid double processing
		h.logger.Info("webhook: settlement event acknowledged, poll path owns ingestion",
			"reference", ev.Settlement.Reference)
		monitoring.TrackWebhookEvent(string(ev.Kind), "acknowledged")
		return http.StatusOK, map[string]any{"status": "acknowledged"}

	default:
		monitoring.TrackWebhookEvent(string(paystack.KindUnrecognized), "ignored")
		return http.StatusOK, map[string]any{"status": "ignored"}
	}
}

func (h *WebhookHandler) processCharge(ctx context.Context, ev *paystack.ChargeEvent) (int, map[string]any) {
	kind := string(paystack.KindChargeSucceeded)

	// deliveries for one reference are serialized; a delivery that loses
	// the race gets a retry response and the redelivery hits the
	// idempotency guard
	locked, err := h.locks.Acquire(ctx, ev.Reference)
	if err != nil {
		monitoring.TrackWebhookEvent(kind, "retry")
		return http.StatusServiceUnavailable, map[string]any{"status": "retry"}
	}
	if !locked {
		monitoring.TrackWebhookEvent(kind, "in_flight")
		return http.StatusServiceUnavailable, map[string]any{"status": "retry"}
	}
	defer h.locks.Release(ctx, ev.Reference)

	ticket, err := h.ledger.ProcessCharge(ctx, ev)
	switch {
	case err == nil:
		monitoring.TrackWebhookEvent(kind, "processed")
		return http.StatusOK, map[string]any{"status": "processed", "ticket_id": ticket.ID}

	case errors.Is(err, status.ErrDuplicateDelivery):
		monitoring.TrackWebhookEvent(kind, "duplicate")
		return http.StatusOK, map[string]any{"status": "duplicate"}

	case errors.Is(err, status.ErrEventNotFound):
		h.logger.Warn("webhook: charge for unknown event", "reference", ev.Reference, "error", err)
		monitoring.TrackWebhookEvent(kind, "skipped")
		return http.StatusOK, map[string]any{"status": "skipped"}

	case errors.Is(err, status.ErrTransactionConflict), errors.Is(err, status.ErrUpstreamUnavailable):
		h.logger.Error("webhook: transient charge failure", "reference", ev.Reference, "error", err)
		monitoring.TrackWebhookEvent(kind, "retry")
		return http.StatusServiceUnavailable, map[string]any{"status": "retry"}

	default:
		h.logger.Error("webhook: charge failed", "reference", ev.Reference, "error", err)
		monitoring.TrackWebhookEvent(kind, "error")
		return http.StatusInternalServerError, map[string]any{"status": "error"}
	}
}

func (h *WebhookHandler) processTransfer(ctx context.Context, ev *paystack.SettlementEvent) (int, map[string]any) {
	kind := string(paystack.KindTransferSucceeded)

	err := h.ledger.ProcessTransfer(ctx, ev)
	switch {
	case err == nil:
		monitoring.TrackWebhookEvent(kind, "processed")
		return http.StatusOK, map[string]any{"status": "processed"}

	case errors.Is(err, status.ErrDuplicateDelivery):
		monitoring.TrackWebhookEvent(kind, "duplicate")
		return http.StatusOK, map[string]any{"status": "duplicate"}

	case errors.Is(err, status.ErrReferenceNotFound):
		h.logger.Warn("webhook: transfer with no pending withdrawal", "reference", ev.Reference)
		monitoring.TrackWebhookEvent(kind, "skipped")
		return http.StatusOK, map[string]any{"status": "skipped"}

	case errors.Is(err, status.ErrTransactionConflict):
		monitoring.TrackWebhookEvent(kind, "retry")
		return http.StatusServiceUnavailable, map[string]any{"status": "retry"}

	default:
		h.logger.Error("webhook: transfer failed", "reference", ev.Reference, "error", err)
		monitoring.TrackWebhookEvent(kind, "error")
		return http.StatusInternalServerError, map[string]any{"status": "error"}
	}
}
