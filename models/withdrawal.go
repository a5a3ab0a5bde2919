package models

import (
	"time"
)

type WithdrawalStatus string

const (
	WithdrawalPending WithdrawalStatus = "pending"
	WithdrawalSuccess WithdrawalStatus = "success"
	WithdrawalFailed  WithdrawalStatus = "failed"
)

// WithdrawalRequest is a payout instruction. Status moves from pending to
// success or failed exactly once; the amount is held out of the wallet's
// settled balance for the lifetime of the request.
type WithdrawalRequest struct {
	ID        string           `json:"id"`
	WalletID  string           `json:"wallet_id"`
	OwnerID   string           `json:"owner_id"`
	Amount    int64            `json:"amount"`
	Status    WithdrawalStatus `json:"status"`
	Reference string           `json:"reference"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
