package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Micheal-18/tick.backend/internal/services/paystack"
	"github.com/Micheal-18/tick.backend/internal/status"
	"github.com/Micheal-18/tick.backend/models"
	"github.com/Micheal-18/tick.backend/store"
)

type fakeGateway struct {
	mu          sync.Mutex
	transferErr error
	transfers   []string // recipient accounts, in call order

	settlements []paystack.SettlementEvent
	listErr     error
}

func (g *fakeGateway) InitiateTransfer(ctx context.Context, recipient string, amount int64, reference, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.transferErr != nil {
		return g.transferErr
	}
	g.transfers = append(g.transfers, recipient)
	return nil
}

func (g *fakeGateway) ListSettlements(ctx context.Context) ([]paystack.SettlementEvent, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.settlements, nil
}

func setupWithdrawals(t *testing.T) (*WithdrawalService, *LedgerService, *store.Memory, *fakeGateway) {
	t.Helper()

	mem := store.NewMemory()
	gateway := &fakeGateway{}
	ledger := NewLedgerService(mem, decimal.NewFromInt(8), nil, nil, nil)
	svc := NewWithdrawalService(mem, gateway, ledger, nil)
	return svc, ledger, mem, gateway
}

func TestRequest_HoldsSettledFunds(t *testing.T) {
	svc, _, mem, gateway := setupWithdrawals(t)

	wallet := &models.Wallet{OwnerID: "org1", PayoutAccount: "RCP_1", SettledBalance: 500000}
	require.NoError(t, mem.SaveWallet(wallet))

	wr, err := svc.Request(context.Background(), "org1", 200000)
	require.NoError(t, err)

	assert.Equal(t, models.WithdrawalPending, wr.Status)
	assert.Equal(t, int64(200000), wr.Amount)

	updated, _ := mem.WalletByOwner("org1")
	assert.Equal(t, int64(300000), updated.SettledBalance)

	entry, err := mem.TransactionByReference(wr.Reference, models.TypeWithdrawal)
	require.NoError(t, err)
	assert.Equal(t, int64(-200000), entry.NetAmount)

	assert.Equal(t, []string{"RCP_1"}, gateway.transfers)
}

func TestRequest_InsufficientBalance(t *testing.T) {
	svc, _, mem, gateway := setupWithdrawals(t)

	wallet := &models.Wallet{OwnerID: "org1", SettledBalance: 100000}
	require.NoError(t, mem.SaveWallet(wallet))

	_, err := svc.Request(context.Background(), "org1", 200000)
	assert.ErrorIs(t, err, status.ErrInsufficientBalance)

	updated, _ := mem.WalletByOwner("org1")
	assert.Equal(t, int64(100000), updated.SettledBalance)
	assert.Empty(t, mem.Entries())
	assert.Empty(t, gateway.transfers)
}

func TestRequest_PendingBalanceIsNotWithdrawable(t *testing.T) {
	svc, _, mem, _ := setupWithdrawals(t)

	// money still awaiting settlement must not be reachable
	wallet := &models.Wallet{OwnerID: "org1", PendingBalance: 500000}
	require.NoError(t, mem.SaveWallet(wallet))

	_, err := svc.Request(context.Background(), "org1", 100000)
	assert.ErrorIs(t, err, status.ErrInsufficientBalance)
}

func TestRequest_PlatformWalletDrawsOnFeeBalance(t *testing.T) {
	svc, _, mem, _ := setupWithdrawals(t)

	wallet := &models.Wallet{OwnerID: models.PlatformOwnerID, PayoutAccount: "RCP_PLATFORM", Balance: 80000}
	require.NoError(t, mem.SaveWallet(wallet))

	wr, err := svc.Request(context.Background(), models.PlatformOwnerID, 50000)
	require.NoError(t, err)

	updated, _ := mem.WalletByOwner(models.PlatformOwnerID)
	assert.Equal(t, int64(30000), updated.Balance)

	entry, err := mem.TransactionByReference(wr.Reference, models.TypePlatformWithdrawal)
	require.NoError(t, err)
	assert.Equal(t, int64(-50000), entry.NetAmount)
}

func TestRequest_GatewayFailureRestoresFunds(t *testing.T) {
	svc, _, mem, gateway := setupWithdrawals(t)
	gateway.transferErr = errors.New("gateway 502")

	wallet := &models.Wallet{OwnerID: "org1", PayoutAccount: "RCP_1", SettledBalance: 500000}
	require.NoError(t, mem.SaveWallet(wallet))

	_, err := svc.Request(context.Background(), "org1", 200000)
	require.ErrorIs(t, err, status.ErrUpstreamUnavailable)

	updated, _ := mem.WalletByOwner("org1")
	assert.Equal(t, int64(500000), updated.SettledBalance)

	// the request exists as failed, with hold and reversal entries
	entries := mem.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(-200000), entries[0].NetAmount)
	assert.Equal(t, int64(200000), entries[1].NetAmount)
	assert.Equal(t, entries[0].Reference+"-rev", entries[1].Reference)

	wr, err := mem.WithdrawalByReference(entries[0].Reference)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalFailed, wr.Status)
}

func TestRequest_ConcurrentRequestsCannotOverdraw(t *testing.T) {
	svc, _, mem, _ := setupWithdrawals(t)

	wallet := &models.Wallet{OwnerID: "org1", PayoutAccount: "RCP_1", SettledBalance: 100000}
	require.NoError(t, mem.SaveWallet(wallet))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Request(context.Background(), "org1", 100000)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, status.ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)

	updated, _ := mem.WalletByOwner("org1")
	assert.Equal(t, int64(0), updated.SettledBalance)
}

func TestRequest_NonPositiveAmount(t *testing.T) {
	svc, _, _, _ := setupWithdrawals(t)

	_, err := svc.Request(context.Background(), "org1", 0)
	assert.Error(t, err)
	_, err = svc.Request(context.Background(), "org1", -100)
	assert.Error(t, err)
}

func TestMarkFailed_AlreadyFinalized(t *testing.T) {
	svc, _, mem, _ := setupWithdrawals(t)

	wr := &models.WithdrawalRequest{
		OwnerID:   "org1",
		Amount:    100000,
		Status:    models.WithdrawalSuccess,
		Reference: "WD-1",
	}
	require.NoError(t, mem.SaveWithdrawal(wr))

	err := svc.MarkFailed(context.Background(), "WD-1")
	assert.ErrorIs(t, err, status.ErrDuplicateDelivery)
}

func TestSyncSettlements_AppliesMappedRowsOnce(t *testing.T) {
	svc, _, mem, gateway := setupWithdrawals(t)

	wallet := &models.Wallet{OwnerID: "org1", PayoutAccount: "ACCT_1", PendingBalance: 460000}
	require.NoError(t, mem.SaveWallet(wallet))

	gateway.settlements = []paystack.SettlementEvent{
		{Reference: "STL-1", Amount: 460000, PayoutAccount: "ACCT_1"},
		{Reference: "STL-2", Amount: 99000, PayoutAccount: "ACCT_UNKNOWN"},
	}

	processed, err := svc.SyncSettlements(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	updated, _ := mem.WalletByOwner("org1")
	assert.Equal(t, int64(460000), updated.SettledBalance)

	// a second poll sees the same listing and applies nothing
	processed, err = svc.SyncSettlements(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)

	final, _ := mem.WalletByOwner("org1")
	assert.Equal(t, int64(460000), final.SettledBalance)
	assert.Equal(t, int64(0), final.PendingBalance)
}

func TestSyncSettlements_ListFailure(t *testing.T) {
	svc, _, _, gateway := setupWithdrawals(t)
	gateway.listErr = status.ErrUpstreamUnavailable

	_, err := svc.SyncSettlements(context.Background())
	assert.ErrorIs(t, err, status.ErrUpstreamUnavailable)
}
