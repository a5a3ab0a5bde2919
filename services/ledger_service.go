package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Micheal-18/tick.backend/internal/services/paystack"
	"github.com/Micheal-18/tick.backend/internal/status"
	"github.com/Micheal-18/tick.backend/models"
	"github.com/Micheal-18/tick.backend/monitoring"
	"github.com/Micheal-18/tick.backend/store"
)

// TicketCodec encodes a scannable payload for a committed ticket.
type TicketCodec interface {
	Encode(ticketID, reference string) (string, error)
}

// Notifier dispatches best-effort post-commit notifications.
type Notifier interface {
	TicketSold(ticket *models.Ticket, event *models.Event)
}

// LedgerService is the ledger transaction coordinator: the only component
// allowed to mutate wallet balances and event revenue counters, always
// inside a single atomic store transaction.
type LedgerService struct {
	store      store.Store
	feePercent decimal.Decimal
	codec      TicketCodec
	notifier   Notifier
	logger     *slog.Logger
}

func NewLedgerService(st store.Store, feePercent decimal.Decimal, codec TicketCodec, notifier Notifier, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		store:      st,
		feePercent: feePercent,
		codec:      codec,
		notifier:   notifier,
		logger:     logger,
	}
}

// ProcessCharge applies one verified, non-duplicate charge.success event:
// platform wallet credit, organizer pending credit, event statistics and
// ticket creation commit together or not at all. Post-commit work (QR
// payload, audit entry, notification) is best-effort and never rolls the
// financial transaction back.
func (s *LedgerService) ProcessCharge(ctx context.Context, ev *paystack.ChargeEvent) (*models.Ticket, error) {
	// duplicate delivery short-circuit; re-checked inside the transaction
	if _, err := s.store.TicketByReference(ev.Reference); err == nil {
		return nil, status.ErrDuplicateDelivery
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	split := SplitRevenue(ev.Amount, s.feePercent)

	var (
		ticket   *models.Ticket
		event    *models.Event
		orgWalID string
	)
	err := runAtomic(ctx, s.store, func(tx store.Tx) error {
		if _, err := tx.TicketByReference(ev.Reference); err == nil {
			return status.ErrDuplicateDelivery
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		var err error
		event, err = tx.EventByID(ev.Metadata.EventID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("ledger: charge %s: %w", ev.Reference, status.ErrEventNotFound)
		} else if err != nil {
			return err
		}

		platform, err := s.walletFor(tx, models.PlatformOwnerID, "")
		if err != nil {
			return err
		}
		organizer, err := s.walletFor(tx, event.OwnerID, event.PayoutAccount)
		if err != nil {
			return err
		}

		platform.Balance += split.PlatformFee
		platform.TotalEarned += split.PlatformFee
		if err := tx.SaveWallet(platform); err != nil {
			return err
		}

		organizer.PendingBalance += split.OrganizerNet
		organizer.TotalEarned += split.OrganizerNet
		if err := tx.SaveWallet(organizer); err != nil {
			return err
		}
		orgWalID = organizer.ID

		event.TicketSold += ev.Metadata.TicketQuantity
		event.GrossRevenue += split.Gross
		event.OrganizerRevenue += split.OrganizerNet
		event.PlatformRevenue += split.PlatformFee
		if err := tx.SaveEvent(event); err != nil {
			return err
		}

		ticket = &models.Ticket{
			Reference:  ev.Reference,
			EventID:    event.ID,
			BuyerName:  ev.Metadata.BuyerName,
			BuyerEmail: ev.CustomerEmail,
			Label:      ev.Metadata.TicketLabel,
			Quantity:   ev.Metadata.TicketQuantity,
			Amount:     split.Gross,
			Status:     "success",
			Used:       false,
		}
		return tx.SaveTicket(ticket)
	})
	if err != nil {
		return nil, err
	}

	monitoring.TrackCharge(split.Gross)
	s.postCommit(ctx, ticket, event, orgWalID, split)

	return ticket, nil
}

// postCommit runs the best-effort steps after the financial transaction
// committed. Failures here are logged and counted, never propagated.
func (s *LedgerService) postCommit(ctx context.Context, ticket *models.Ticket, event *models.Event, orgWalletID string, split RevenueSplit) {
	entry := &models.WalletTransaction{
		WalletID:    orgWalletID,
		Type:        models.TypeTicketSale,
		Reference:   ticket.Reference,
		GrossAmount: split.Gross,
		Fee:         split.PlatformFee,
		NetAmount:   split.OrganizerNet,
	}
	if err := s.store.AppendTransaction(entry); err != nil {
		// the ticket record still guards idempotency; the missing entry
		// surfaces as drift on the next reconciliation
		s.logger.Error("ledger: append sale entry", "reference", ticket.Reference, "error", err)
	}

	if s.codec != nil {
		payload, err := s.codec.Encode(ticket.ID, ticket.Reference)
		if err != nil {
			monitoring.TrackNotificationFailure("qrcode")
			s.logger.Error("ledger: encode ticket code", "ticket", ticket.ID, "error", err)
		} else {
			ticket.QRPayload = payload
			if err := s.store.SaveTicket(ticket); err != nil {
				s.logger.Error("ledger: attach ticket code", "ticket", ticket.ID, "error", err)
			}
		}
	}

	if s.notifier != nil {
		s.notifier.TicketSold(ticket, event)
	}
}

// ProcessSettlement moves settled gateway money from pending to settled
// for the wallet mapped by payout account. Pending never goes negative:
// the moved amount is min(pending, settlement amount) and any excess is
// flagged, not dropped silently and not double-counted.
func (s *LedgerService) ProcessSettlement(ctx context.Context, ev *paystack.SettlementEvent) error {
	if _, err := s.store.TransactionByReference(ev.Reference, models.TypeSettlement); err == nil {
		return status.ErrDuplicateDelivery
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	return runAtomic(ctx, s.store, func(tx store.Tx) error {
		if _, err := tx.TransactionByReference(ev.Reference, models.TypeSettlement); err == nil {
			return status.ErrDuplicateDelivery
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		wallet, err := tx.WalletByPayoutAccount(ev.PayoutAccount)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("ledger: settlement %s unmapped account %q: %w", ev.Reference, ev.PayoutAccount, status.ErrReferenceNotFound)
		} else if err != nil {
			return err
		}

		moved := min(wallet.PendingBalance, ev.Amount)
		wallet.PendingBalance -= moved
		wallet.SettledBalance += moved
		if err := tx.SaveWallet(wallet); err != nil {
			return err
		}

		entry := &models.WalletTransaction{
			WalletID:    wallet.ID,
			Type:        models.TypeSettlement,
			Reference:   ev.Reference,
			GrossAmount: moved,
			// pending -> settled within the same wallet: zero total delta
			NetAmount: 0,
		}
		if excess := ev.Amount - moved; excess > 0 {
			entry.Note = fmt.Sprintf("reported %d exceeds pending balance by %d", ev.Amount, excess)
			monitoring.TrackSettlementDiscrepancy(excess)
			s.logger.Warn("ledger: settlement exceeds pending balance",
				"reference", ev.Reference, "reported", ev.Amount, "moved", moved)
		}
		return tx.AppendTransaction(entry)
	})
}

// ProcessTransfer confirms a gateway payout against its pending
// withdrawal request. The money already left the wallet when the request
// was created; this is the pending -> success state transition.
func (s *LedgerService) ProcessTransfer(ctx context.Context, ev *paystack.SettlementEvent) error {
	return runAtomic(ctx, s.store, func(tx store.Tx) error {
		wr, err := tx.WithdrawalByReference(ev.Reference)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("ledger: transfer %s: %w", ev.Reference, status.ErrReferenceNotFound)
		} else if err != nil {
			return err
		}

		if wr.Status != models.WithdrawalPending {
			return status.ErrDuplicateDelivery
		}

		if ev.Amount != 0 && ev.Amount != wr.Amount {
			s.logger.Warn("ledger: transfer amount mismatch",
				"reference", ev.Reference, "requested", wr.Amount, "reported", ev.Amount)
		}

		wr.Status = models.WithdrawalSuccess
		return tx.SaveWithdrawal(wr)
	})
}

// ReconcileWallet recomputes a wallet's holdings from the audit ledger
// and reports drift against the cached balance fields.
type WalletReconciliation struct {
	Wallet       *models.Wallet `json:"wallet"`
	LedgerTotal  int64          `json:"ledger_total"`
	BalanceTotal int64          `json:"balance_total"`
	Drift        int64          `json:"drift"`
}

func (s *LedgerService) ReconcileWallet(ctx context.Context, ownerID string) (*WalletReconciliation, error) {
	wallet, err := s.store.WalletByOwner(ownerID)
	if err != nil {
		return nil, err
	}

	var ledgerTotal, balanceTotal int64
	if wallet.IsPlatform() {
		// the platform's share is the fee column of every ticket sale,
		// less platform withdrawals
		fees, err := s.store.SumEntries("", models.TypeTicketSale, "fee")
		if err != nil {
			return nil, err
		}
		withdrawn, err := s.store.SumEntries(wallet.ID, models.TypePlatformWithdrawal, "net_amount")
		if err != nil {
			return nil, err
		}
		ledgerTotal = fees + withdrawn
		balanceTotal = wallet.Balance
	} else {
		sales, err := s.store.SumEntries(wallet.ID, models.TypeTicketSale, "net_amount")
		if err != nil {
			return nil, err
		}
		withdrawn, err := s.store.SumEntries(wallet.ID, models.TypeWithdrawal, "net_amount")
		if err != nil {
			return nil, err
		}
		ledgerTotal = sales + withdrawn
		balanceTotal = wallet.PendingBalance + wallet.SettledBalance
	}

	rec := &WalletReconciliation{
		Wallet:       wallet,
		LedgerTotal:  ledgerTotal,
		BalanceTotal: balanceTotal,
		Drift:        balanceTotal - ledgerTotal,
	}
	if rec.Drift != 0 {
		s.logger.Warn("ledger: wallet drift detected",
			"owner", ownerID, "balance", balanceTotal, "ledger", ledgerTotal)
	}
	return rec, nil
}

// walletFor loads a wallet by owner, creating a zero-balance one on first
// use. The payout account is attached when first seen.
func (s *LedgerService) walletFor(tx store.Tx, ownerID, payoutAccount string) (*models.Wallet, error) {
	wallet, err := tx.WalletByOwner(ownerID)
	if errors.Is(err, store.ErrNotFound) {
		wallet = &models.Wallet{OwnerID: ownerID, PayoutAccount: payoutAccount}
		if err := tx.SaveWallet(wallet); err != nil {
			return nil, err
		}
		return wallet, nil
	} else if err != nil {
		return nil, err
	}
	if wallet.PayoutAccount == "" && payoutAccount != "" {
		wallet.PayoutAccount = payoutAccount
	}
	return wallet, nil
}
