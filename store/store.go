// Package store abstracts the document database behind the wallet ledger.
// Services receive an explicitly constructed Store instance so tests can
// substitute the in-memory implementation.
package store

import (
	"context"
	"errors"

	"github.com/Micheal-18/tick.backend/models"
)

var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("store: record not found")

	// ErrConflict is a store-level concurrency failure inside an atomic
	// transaction. Callers retry a bounded number of times.
	ErrConflict = errors.New("store: transaction conflict")
)

// Tx is the record API available both outside and inside an atomic
// transaction. Monetary writes are only valid inside RunInTransaction;
// the ledger coordinator is the sole balance mutator.
type Tx interface {
	WalletByOwner(ownerID string) (*models.Wallet, error)
	WalletByPayoutAccount(account string) (*models.Wallet, error)
	SaveWallet(w *models.Wallet) error

	EventByID(id string) (*models.Event, error)
	SaveEvent(ev *models.Event) error

	TicketByReference(reference string) (*models.Ticket, error)
	SaveTicket(t *models.Ticket) error

	TransactionByReference(reference string, typ models.TransactionType) (*models.WalletTransaction, error)
	// AppendTransaction writes one immutable audit-ledger entry. Entries
	// are never updated or deleted.
	AppendTransaction(entry *models.WalletTransaction) error

	WithdrawalByReference(reference string) (*models.WithdrawalRequest, error)
	SaveWithdrawal(wr *models.WithdrawalRequest) error
}

// Store is the root handle. RunInTransaction applies fn atomically: either
// every write inside fn commits or none do.
type Store interface {
	Tx

	// SumEntries sums field ("net_amount", "fee" or "gross_amount") over
	// ledger entries of the given type. An empty walletID sums across all
	// wallets. Used to recompute balances from the ledger.
	SumEntries(walletID string, typ models.TransactionType, field string) (int64, error)

	RunInTransaction(ctx context.Context, fn func(tx Tx) error) error
}
