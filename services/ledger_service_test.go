package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Micheal-18/tick.backend/internal/services/paystack"
	"github.com/Micheal-18/tick.backend/internal/status"
	"github.com/Micheal-18/tick.backend/models"
	"github.com/Micheal-18/tick.backend/store"
)

type stubCodec struct{}

func (stubCodec) Encode(ticketID, reference string) (string, error) {
	return "data:image/png;base64," + ticketID, nil
}

type recordingNotifier struct {
	sold []string
}

func (n *recordingNotifier) TicketSold(ticket *models.Ticket, event *models.Event) {
	n.sold = append(n.sold, ticket.Reference)
}

func setupLedger(t *testing.T) (*LedgerService, *store.Memory, *models.Event) {
	t.Helper()

	mem := store.NewMemory()
	event := &models.Event{
		OwnerID:       "org1",
		Name:          "Launch Party",
		TicketLabel:   "VIP",
		TicketPrice:   250000,
		PayoutAccount: "ACCT_1",
		Status:        "publish",
	}
	require.NoError(t, mem.SaveEvent(event))

	svc := NewLedgerService(mem, decimal.NewFromInt(8), nil, nil, nil)
	return svc, mem, event
}

func chargeEvent(reference string, amount int64, eventID string, quantity int) *paystack.ChargeEvent {
	return &paystack.ChargeEvent{
		Reference:     reference,
		Amount:        amount,
		CustomerEmail: "buyer@example.com",
		Metadata: paystack.Metadata{
			EventID:        eventID,
			TicketLabel:    "VIP",
			TicketQuantity: quantity,
			BuyerName:      "Ada",
		},
	}
}

func TestProcessCharge_SplitsAndCommitsTogether(t *testing.T) {
	svc, mem, event := setupLedger(t)
	ctx := context.Background()

	ticket, err := svc.ProcessCharge(ctx, chargeEvent("TK-1", 500000, event.ID, 2))
	require.NoError(t, err)
	require.NotNil(t, ticket)

	platform, err := mem.WalletByOwner(models.PlatformOwnerID)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), platform.Balance)
	assert.Equal(t, int64(40000), platform.TotalEarned)

	organizer, err := mem.WalletByOwner("org1")
	require.NoError(t, err)
	assert.Equal(t, int64(460000), organizer.PendingBalance)
	assert.Equal(t, int64(460000), organizer.TotalEarned)
	assert.Equal(t, "ACCT_1", organizer.PayoutAccount)
	assert.Equal(t, int64(0), organizer.SettledBalance)

	updated, err := mem.EventByID(event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.TicketSold)
	assert.Equal(t, int64(500000), updated.GrossRevenue)
	assert.Equal(t, int64(460000), updated.OrganizerRevenue)
	assert.Equal(t, int64(40000), updated.PlatformRevenue)

	assert.Equal(t, "TK-1", ticket.Reference)
	assert.Equal(t, "success", ticket.Status)
	assert.False(t, ticket.Used)
	assert.Equal(t, int64(500000), ticket.Amount)

	entries := mem.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.TypeTicketSale, entries[0].Type)
	assert.Equal(t, organizer.ID, entries[0].WalletID)
	assert.Equal(t, int64(500000), entries[0].GrossAmount)
	assert.Equal(t, int64(40000), entries[0].Fee)
	assert.Equal(t, int64(460000), entries[0].NetAmount)
}

func TestProcessCharge_DuplicateDeliveryIsNoOp(t *testing.T) {
	svc, mem, event := setupLedger(t)
	ctx := context.Background()

	_, err := svc.ProcessCharge(ctx, chargeEvent("TK-1", 500000, event.ID, 1))
	require.NoError(t, err)

	_, err = svc.ProcessCharge(ctx, chargeEvent("TK-1", 500000, event.ID, 1))
	assert.ErrorIs(t, err, status.ErrDuplicateDelivery)

	// the redelivery must not have touched any balance
	organizer, _ := mem.WalletByOwner("org1")
	assert.Equal(t, int64(460000), organizer.PendingBalance)
	assert.Len(t, mem.Tickets(), 1)
	assert.Len(t, mem.Entries(), 1)
}

func TestProcessCharge_UnknownEvent(t *testing.T) {
	svc, mem, _ := setupLedger(t)

	_, err := svc.ProcessCharge(context.Background(), chargeEvent("TK-1", 500000, "missing", 1))
	assert.ErrorIs(t, err, status.ErrEventNotFound)

	assert.Empty(t, mem.Tickets())
	assert.Empty(t, mem.Entries())
}

func TestProcessCharge_AbortLeavesNoPartialState(t *testing.T) {
	svc, mem, event := setupLedger(t)

	// wallets and event counters are written before the ticket; failing
	// the ticket save must roll all of it back
	boom := errors.New("disk full")
	mem.Fail = func(op string) error {
		if op == "SaveTicket" {
			return boom
		}
		return nil
	}

	_, err := svc.ProcessCharge(context.Background(), chargeEvent("TK-1", 500000, event.ID, 1))
	require.ErrorIs(t, err, boom)

	_, err = mem.WalletByOwner(models.PlatformOwnerID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = mem.WalletByOwner("org1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	unchanged, _ := mem.EventByID(event.ID)
	assert.Equal(t, 0, unchanged.TicketSold)
	assert.Equal(t, int64(0), unchanged.GrossRevenue)
	assert.Empty(t, mem.Tickets())
	assert.Empty(t, mem.Entries())
}

func TestProcessCharge_RetriesConflictThenSucceeds(t *testing.T) {
	svc, mem, event := setupLedger(t)

	failures := 0
	mem.Fail = func(op string) error {
		if op == "SaveWallet" && failures < 2 {
			failures++
			return store.ErrConflict
		}
		return nil
	}

	ticket, err := svc.ProcessCharge(context.Background(), chargeEvent("TK-1", 500000, event.ID, 1))
	require.NoError(t, err)
	require.NotNil(t, ticket)
	assert.Equal(t, 2, failures)

	organizer, _ := mem.WalletByOwner("org1")
	assert.Equal(t, int64(460000), organizer.PendingBalance)
}

func TestProcessCharge_ConflictRetriesExhausted(t *testing.T) {
	svc, mem, event := setupLedger(t)

	mem.Fail = func(op string) error {
		if op == "SaveWallet" {
			return store.ErrConflict
		}
		return nil
	}

	_, err := svc.ProcessCharge(context.Background(), chargeEvent("TK-1", 500000, event.ID, 1))
	assert.ErrorIs(t, err, status.ErrTransactionConflict)
	assert.Empty(t, mem.Tickets())
}

func TestProcessCharge_PostCommitAttachesCodeAndNotifies(t *testing.T) {
	_, mem, event := setupLedger(t)
	notifier := &recordingNotifier{}
	svc := NewLedgerService(mem, decimal.NewFromInt(8), stubCodec{}, notifier, nil)

	ticket, err := svc.ProcessCharge(context.Background(), chargeEvent("TK-1", 500000, event.ID, 1))
	require.NoError(t, err)

	stored, err := mem.TicketByReference("TK-1")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,"+ticket.ID, stored.QRPayload)
	assert.Equal(t, []string{"TK-1"}, notifier.sold)
}

func TestProcessSettlement_MovesPendingToSettled(t *testing.T) {
	svc, mem, event := setupLedger(t)
	ctx := context.Background()

	_, err := svc.ProcessCharge(ctx, chargeEvent("TK-1", 500000, event.ID, 1))
	require.NoError(t, err)

	err = svc.ProcessSettlement(ctx, &paystack.SettlementEvent{
		Reference:     "STL-1",
		Amount:        460000,
		PayoutAccount: "ACCT_1",
	})
	require.NoError(t, err)

	organizer, _ := mem.WalletByOwner("org1")
	assert.Equal(t, int64(0), organizer.PendingBalance)
	assert.Equal(t, int64(460000), organizer.SettledBalance)
	assert.Equal(t, int64(460000), organizer.TotalEarned)

	entry, err := mem.TransactionByReference("STL-1", models.TypeSettlement)
	require.NoError(t, err)
	assert.Equal(t, int64(460000), entry.GrossAmount)
	assert.Equal(t, int64(0), entry.NetAmount)
	assert.Empty(t, entry.Note)
}

func TestProcessSettlement_CapsAtPendingBalance(t *testing.T) {
	svc, mem, _ := setupLedger(t)
	ctx := context.Background()

	wallet := &models.Wallet{OwnerID: "org1", PayoutAccount: "ACCT_1", PendingBalance: 60000}
	require.NoError(t, mem.SaveWallet(wallet))

	err := svc.ProcessSettlement(ctx, &paystack.SettlementEvent{
		Reference:     "STL-1",
		Amount:        100000,
		PayoutAccount: "ACCT_1",
	})
	require.NoError(t, err)

	updated, _ := mem.WalletByOwner("org1")
	assert.Equal(t, int64(0), updated.PendingBalance)
	assert.Equal(t, int64(60000), updated.SettledBalance)

	// the excess is flagged on the entry, not silently dropped
	entry, err := mem.TransactionByReference("STL-1", models.TypeSettlement)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), entry.GrossAmount)
	assert.Contains(t, entry.Note, "exceeds pending balance by 40000")
}

func TestProcessSettlement_DuplicateReference(t *testing.T) {
	svc, mem, _ := setupLedger(t)
	ctx := context.Background()

	wallet := &models.Wallet{OwnerID: "org1", PayoutAccount: "ACCT_1", PendingBalance: 100000}
	require.NoError(t, mem.SaveWallet(wallet))

	ev := &paystack.SettlementEvent{Reference: "STL-1", Amount: 100000, PayoutAccount: "ACCT_1"}
	require.NoError(t, svc.ProcessSettlement(ctx, ev))

	err := svc.ProcessSettlement(ctx, ev)
	assert.ErrorIs(t, err, status.ErrDuplicateDelivery)

	updated, _ := mem.WalletByOwner("org1")
	assert.Equal(t, int64(100000), updated.SettledBalance)
}

func TestProcessSettlement_UnmappedAccount(t *testing.T) {
	svc, _, _ := setupLedger(t)

	err := svc.ProcessSettlement(context.Background(), &paystack.SettlementEvent{
		Reference:     "STL-1",
		Amount:        100000,
		PayoutAccount: "ACCT_UNKNOWN",
	})
	assert.ErrorIs(t, err, status.ErrReferenceNotFound)
}

func TestProcessTransfer_ConfirmsPendingWithdrawal(t *testing.T) {
	svc, mem, _ := setupLedger(t)

	wr := &models.WithdrawalRequest{
		WalletID:  "wal1",
		OwnerID:   "org1",
		Amount:    250000,
		Status:    models.WithdrawalPending,
		Reference: "WD-1",
	}
	require.NoError(t, mem.SaveWithdrawal(wr))

	err := svc.ProcessTransfer(context.Background(), &paystack.SettlementEvent{
		Reference: "WD-1",
		Amount:    250000,
	})
	require.NoError(t, err)

	updated, _ := mem.WithdrawalByReference("WD-1")
	assert.Equal(t, models.WithdrawalSuccess, updated.Status)
}

func TestProcessTransfer_AlreadyFinalized(t *testing.T) {
	svc, mem, _ := setupLedger(t)

	wr := &models.WithdrawalRequest{
		OwnerID:   "org1",
		Amount:    250000,
		Status:    models.WithdrawalSuccess,
		Reference: "WD-1",
	}
	require.NoError(t, mem.SaveWithdrawal(wr))

	err := svc.ProcessTransfer(context.Background(), &paystack.SettlementEvent{Reference: "WD-1"})
	assert.ErrorIs(t, err, status.ErrDuplicateDelivery)
}

func TestProcessTransfer_UnknownReference(t *testing.T) {
	svc, _, _ := setupLedger(t)

	err := svc.ProcessTransfer(context.Background(), &paystack.SettlementEvent{Reference: "WD-missing"})
	assert.ErrorIs(t, err, status.ErrReferenceNotFound)
}

func TestReconcileWallet_CleanLedger(t *testing.T) {
	svc, _, event := setupLedger(t)
	ctx := context.Background()

	_, err := svc.ProcessCharge(ctx, chargeEvent("TK-1", 500000, event.ID, 1))
	require.NoError(t, err)
	require.NoError(t, svc.ProcessSettlement(ctx, &paystack.SettlementEvent{
		Reference: "STL-1", Amount: 460000, PayoutAccount: "ACCT_1",
	}))

	rec, err := svc.ReconcileWallet(ctx, "org1")
	require.NoError(t, err)
	assert.Equal(t, int64(460000), rec.LedgerTotal)
	assert.Equal(t, int64(460000), rec.BalanceTotal)
	assert.Equal(t, int64(0), rec.Drift)

	platformRec, err := svc.ReconcileWallet(ctx, models.PlatformOwnerID)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), platformRec.LedgerTotal)
	assert.Equal(t, int64(0), platformRec.Drift)
}

func TestReconcileWallet_DetectsDrift(t *testing.T) {
	svc, mem, event := setupLedger(t)
	ctx := context.Background()

	_, err := svc.ProcessCharge(ctx, chargeEvent("TK-1", 500000, event.ID, 1))
	require.NoError(t, err)

	// corrupt the cached balance behind the ledger's back
	organizer, _ := mem.WalletByOwner("org1")
	organizer.PendingBalance += 1000
	require.NoError(t, mem.SaveWallet(organizer))

	rec, err := svc.ReconcileWallet(ctx, "org1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), rec.Drift)
}
