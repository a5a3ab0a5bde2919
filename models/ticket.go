package models

import (
	"time"
)

type Ticket struct {
	ID         string    `json:"id"`
	Reference  string    `json:"reference"` // external payment reference, unique
	EventID    string    `json:"event_id"`
	BuyerName  string    `json:"buyer_name"`
	BuyerEmail string    `json:"buyer_email"`
	Label      string    `json:"label"`
	Quantity   int       `json:"quantity"`
	Amount     int64     `json:"amount"` // gross amount paid, minor units
	Status     string    `json:"status"` // success, cancelled
	Used       bool      `json:"used"`
	QRPayload  string    `json:"qr_payload,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
