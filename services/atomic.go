package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Micheal-18/tick.backend/internal/status"
	"github.com/Micheal-18/tick.backend/monitoring"
	"github.com/Micheal-18/tick.backend/store"
)

// maxTxRetries bounds conflict retries of atomic store transactions.
const maxTxRetries = 3

// runAtomic applies fn atomically with a bounded retry on store-level
// conflicts. If retries are exhausted the conflict is surfaced as a
// transient failure so the caller (or the webhook provider) retries.
func runAtomic(ctx context.Context, st store.Store, fn func(tx store.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		if attempt > 0 {
			monitoring.TrackLedgerRetry()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}
		err = st.RunInTransaction(ctx, fn)
		if err == nil || !errors.Is(err, store.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("ledger: retries exhausted: %w", status.ErrTransactionConflict)
}
