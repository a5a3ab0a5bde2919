package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Micheal-18/tick.backend/internal/services/paystack"
	"github.com/Micheal-18/tick.backend/internal/status"
	"github.com/Micheal-18/tick.backend/models"
	"github.com/Micheal-18/tick.backend/monitoring"
	"github.com/Micheal-18/tick.backend/store"
	"github.com/Micheal-18/tick.backend/utils"
)

// PayoutGateway is the slice of the payment gateway the withdrawal flow
// needs: starting transfers and reading the settlement list.
type PayoutGateway interface {
	InitiateTransfer(ctx context.Context, recipient string, amount int64, reference, reason string) error
	ListSettlements(ctx context.Context) ([]paystack.SettlementEvent, error)
}

// SettlementReconciler applies one settlement idempotently.
type SettlementReconciler interface {
	ProcessSettlement(ctx context.Context, ev *paystack.SettlementEvent) error
}

// WithdrawalService drives the payout state machine: pending -> success
// via confirmed transfer reconciliation, or pending -> failed, each
// exactly once. Requested amounts are held out of the wallet at request
// time inside the atomic transaction, so two concurrent requests can
// never both pass the balance check against stale reads.
type WithdrawalService struct {
	store      store.Store
	gateway    PayoutGateway
	reconciler SettlementReconciler
	logger     *slog.Logger
}

func NewWithdrawalService(st store.Store, gateway PayoutGateway, reconciler SettlementReconciler, logger *slog.Logger) *WithdrawalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WithdrawalService{
		store:      st,
		gateway:    gateway,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Request creates a withdrawal for the wallet owned by ownerID. Organizer
// wallets draw on the settled balance; the platform wallet draws on its
// fee balance. The transfer is initiated post-commit; if the gateway
// rejects it the request fails and the held amount is restored.
func (s *WithdrawalService) Request(ctx context.Context, ownerID string, amount int64) (*models.WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("withdrawal: non-positive amount %d", amount)
	}

	reference := utils.NewReference("WD")

	var (
		wr     *models.WithdrawalRequest
		payout string
	)
	err := runAtomic(ctx, s.store, func(tx store.Tx) error {
		wallet, err := tx.WalletByOwner(ownerID)
		if err != nil {
			return err
		}

		entryType := models.TypeWithdrawal
		if wallet.IsPlatform() {
			entryType = models.TypePlatformWithdrawal
			if amount > wallet.Balance {
				return status.ErrInsufficientBalance
			}
			wallet.Balance -= amount
		} else {
			if amount > wallet.SettledBalance {
				return status.ErrInsufficientBalance
			}
			wallet.SettledBalance -= amount
		}
		if err := tx.SaveWallet(wallet); err != nil {
			return err
		}
		payout = wallet.PayoutAccount

		wr = &models.WithdrawalRequest{
			WalletID:  wallet.ID,
			OwnerID:   ownerID,
			Amount:    amount,
			Status:    models.WithdrawalPending,
			Reference: reference,
		}
		if err := tx.SaveWithdrawal(wr); err != nil {
			return err
		}

		return tx.AppendTransaction(&models.WalletTransaction{
			WalletID:    wallet.ID,
			Type:        entryType,
			Reference:   reference,
			GrossAmount: amount,
			NetAmount:   -amount,
		})
	})
	if err != nil {
		if errors.Is(err, status.ErrInsufficientBalance) {
			monitoring.TrackWithdrawal("insufficient_balance")
		}
		return nil, err
	}

	if err := s.gateway.InitiateTransfer(ctx, payout, amount, reference, "wallet payout"); err != nil {
		s.logger.Error("withdrawal: transfer initiation failed", "reference", reference, "error", err)
		if failErr := s.MarkFailed(ctx, reference); failErr != nil {
			s.logger.Error("withdrawal: mark failed", "reference", reference, "error", failErr)
		}
		monitoring.TrackWithdrawal("gateway_error")
		return nil, fmt.Errorf("withdrawal %s: %w", reference, status.ErrUpstreamUnavailable)
	}

	monitoring.TrackWithdrawal("requested")
	return wr, nil
}

// MarkFailed finalizes a pending withdrawal as failed and restores the
// held amount, with a reversing ledger entry.
func (s *WithdrawalService) MarkFailed(ctx context.Context, reference string) error {
	return runAtomic(ctx, s.store, func(tx store.Tx) error {
		wr, err := tx.WithdrawalByReference(reference)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("withdrawal %s: %w", reference, status.ErrReferenceNotFound)
		} else if err != nil {
			return err
		}
		if wr.Status != models.WithdrawalPending {
			return status.ErrDuplicateDelivery
		}

		wallet, err := tx.WalletByOwner(wr.OwnerID)
		if err != nil {
			return err
		}

		entryType := models.TypeWithdrawal
		if wallet.IsPlatform() {
			entryType = models.TypePlatformWithdrawal
			wallet.Balance += wr.Amount
		} else {
			wallet.SettledBalance += wr.Amount
		}
		if err := tx.SaveWallet(wallet); err != nil {
			return err
		}

		wr.Status = models.WithdrawalFailed
		if err := tx.SaveWithdrawal(wr); err != nil {
			return err
		}

		// distinct reference so the (reference, type) uniqueness of the
		// ledger holds for both the hold entry and its reversal
		return tx.AppendTransaction(&models.WalletTransaction{
			WalletID:    wallet.ID,
			Type:        entryType,
			Reference:   reference + "-rev",
			GrossAmount: wr.Amount,
			NetAmount:   wr.Amount,
			Note:        "reversal: transfer failed",
		})
	})
}

// SyncSettlements polls the gateway settlement list and feeds each row
// through the idempotent reconciler. This admin-triggered poll is the
// single settlement-ingestion mechanism; already-processed and unmapped
// rows are skipped quietly.
func (s *WithdrawalService) SyncSettlements(ctx context.Context) (int, error) {
	rows, err := s.gateway.ListSettlements(ctx)
	if err != nil {
		return 0, fmt.Errorf("syncSettlements: %w", err)
	}

	processed := 0
	for i := range rows {
		ev := rows[i]
		err := s.reconciler.ProcessSettlement(ctx, &ev)
		switch {
		case err == nil:
			processed++
		case errors.Is(err, status.ErrDuplicateDelivery):
			// already reconciled on a previous sync
		case errors.Is(err, status.ErrReferenceNotFound):
			s.logger.Warn("syncSettlements: unmapped settlement", "reference", ev.Reference)
		default:
			s.logger.Error("syncSettlements: settlement failed", "reference", ev.Reference, "error", err)
		}
	}
	return processed, nil
}
