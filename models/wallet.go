package models

import (
	"time"
)

// PlatformOwnerID identifies the singleton platform wallet.
const PlatformOwnerID = "platform"

// Wallet is a balance holder: the platform or a single organizer.
// All amounts are integer minor units (kobo).
type Wallet struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	PayoutAccount  string    `json:"payout_account,omitempty"` // gateway recipient/subaccount code
	Balance        int64     `json:"balance"`                  // spendable platform fees
	PendingBalance int64     `json:"pending_balance"`          // earned, not yet settled by the gateway
	SettledBalance int64     `json:"settled_balance"`          // confirmed paid out to a bank account
	TotalEarned    int64     `json:"total_earned"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsPlatform reports whether the wallet is the platform singleton.
func (w *Wallet) IsPlatform() bool {
	return w.OwnerID == PlatformOwnerID
}
