package paystack

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"

	"github.com/Micheal-18/tick.backend/internal/status"
)

// EventKind is the closed set of webhook events the backend understands.
type EventKind string

const (
	KindChargeSucceeded     EventKind = "charge_succeeded"
	KindTransferSucceeded   EventKind = "transfer_succeeded"
	KindSettlementSucceeded EventKind = "settlement_succeeded"
	KindUnrecognized        EventKind = "unrecognized"
)

// Metadata is the charge metadata attached at payment initialization.
type Metadata struct {
	EventID        string `json:"event_id"`
	TicketLabel    string `json:"ticket_label"`
	TicketQuantity int    `json:"ticket_quantity"`
	BuyerName      string `json:"buyer_name"`
}

// ChargeEvent is a verified charge.success delivery.
type ChargeEvent struct {
	Reference     string
	Amount        int64 // gross, minor units
	CustomerEmail string
	Metadata      Metadata
}

// SettlementEvent covers transfer.success and settlement.success
// deliveries, and rows from the settlement-listing API.
type SettlementEvent struct {
	Reference     string
	Amount        int64
	PayoutAccount string
}

// WebhookEvent is the decoded form of one webhook delivery. Exactly one of
// Charge/Settlement is set depending on Kind.
type WebhookEvent struct {
	Kind       EventKind
	Charge     *ChargeEvent
	Settlement *SettlementEvent
}

type rawWebhook struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
		Metadata  map[string]any `json:"metadata"`
		Recipient struct {
			RecipientCode string `json:"recipient_code"`
		} `json:"recipient"`
		Subaccount struct {
			SubaccountCode string `json:"subaccount_code"`
		} `json:"subaccount"`
	} `json:"data"`
}

// ParseWebhook decodes a verified raw payload into a typed event. Event
// types outside the known set decode to KindUnrecognized with a nil error;
// known types with missing required fields return ErrMalformedEvent so the
// caller can acknowledge and skip.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var raw rawWebhook
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parseWebhook: json.Unmarshal: %w", status.ErrMalformedEvent)
	}

	switch raw.Event {
	case "charge.success":
		ev := &ChargeEvent{
			Reference:     raw.Data.Reference,
			Amount:        raw.Data.Amount,
			CustomerEmail: raw.Data.Customer.Email,
			Metadata:      parseMetadata(raw.Data.Metadata),
		}
		if ev.Reference == "" || ev.Amount <= 0 {
			return nil, fmt.Errorf("parseWebhook: charge.success missing reference or amount: %w", status.ErrMalformedEvent)
		}
		if ev.Metadata.EventID == "" {
			return nil, fmt.Errorf("parseWebhook: charge.success missing event_id metadata: %w", status.ErrMalformedEvent)
		}
		if ev.Metadata.TicketQuantity <= 0 {
			ev.Metadata.TicketQuantity = 1
		}
		return &WebhookEvent{Kind: KindChargeSucceeded, Charge: ev}, nil

	case "transfer.success":
		ev := &SettlementEvent{
			Reference:     raw.Data.Reference,
			Amount:        raw.Data.Amount,
			PayoutAccount: raw.Data.Recipient.RecipientCode,
		}
		if ev.Reference == "" {
			return nil, fmt.Errorf("parseWebhook: transfer.success missing reference: %w", status.ErrMalformedEvent)
		}
		return &WebhookEvent{Kind: KindTransferSucceeded, Settlement: ev}, nil

	case "settlement.success":
		ev := &SettlementEvent{
			Reference:     raw.Data.Reference,
			Amount:        raw.Data.Amount,
			PayoutAccount: raw.Data.Subaccount.SubaccountCode,
		}
		if ev.Reference == "" || ev.PayoutAccount == "" {
			return nil, fmt.Errorf("parseWebhook: settlement.success missing reference or subaccount: %w", status.ErrMalformedEvent)
		}
		return &WebhookEvent{Kind: KindSettlementSucceeded, Settlement: ev}, nil

	default:
		return &WebhookEvent{Kind: KindUnrecognized}, nil
	}
}

// parseMetadata coerces metadata values leniently. Paystack echoes the
// metadata back as sent at initialization, which means numbers frequently
// arrive as strings.
func parseMetadata(m map[string]any) Metadata {
	return Metadata{
		EventID:        cast.ToString(m["event_id"]),
		TicketLabel:    cast.ToString(m["ticket_label"]),
		TicketQuantity: cast.ToInt(m["ticket_quantity"]),
		BuyerName:      cast.ToString(m["buyer_name"]),
	}
}
