package models

import (
	"time"
)

// TransactionType classifies an audit-ledger entry.
type TransactionType string

const (
	TypeTicketSale         TransactionType = "ticket_sale"
	TypeWithdrawal         TransactionType = "withdrawal"
	TypeSettlement         TransactionType = "settlement"
	TypePlatformWithdrawal TransactionType = "platform_withdrawal"
)

// WalletTransaction is an immutable audit record of one money movement.
// Entries are append-only; balances are a cache and the ledger is the
// reconciliation source of truth. NetAmount is the signed delta applied
// to the wallet's total holdings (settlement entries record the amount
// moved between pending and settled and carry a zero total delta).
type WalletTransaction struct {
	ID          string          `json:"id"`
	WalletID    string          `json:"wallet_id"`
	Type        TransactionType `json:"type"`
	Reference   string          `json:"reference"`
	GrossAmount int64           `json:"gross_amount"`
	Fee         int64           `json:"fee"`
	NetAmount   int64           `json:"net_amount"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
