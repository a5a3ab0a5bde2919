package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWallet_IsPlatform(t *testing.T) {
	platform := Wallet{OwnerID: PlatformOwnerID}
	organizer := Wallet{OwnerID: "org1"}

	assert.True(t, platform.IsPlatform())
	assert.False(t, organizer.IsPlatform())
}

func TestWallet_PayoutAccountOmittedWhenEmpty(t *testing.T) {
	data, err := json.Marshal(Wallet{OwnerID: "org1"})
	require.NoError(t, err)

	assert.NotContains(t, string(data), "payout_account")
}

func TestTransactionTypes(t *testing.T) {
	// collection select values depend on these exact strings
	assert.Equal(t, TransactionType("ticket_sale"), TypeTicketSale)
	assert.Equal(t, TransactionType("withdrawal"), TypeWithdrawal)
	assert.Equal(t, TransactionType("settlement"), TypeSettlement)
	assert.Equal(t, TransactionType("platform_withdrawal"), TypePlatformWithdrawal)
}

func TestWithdrawalStatuses(t *testing.T) {
	assert.Equal(t, WithdrawalStatus("pending"), WithdrawalPending)
	assert.Equal(t, WithdrawalStatus("success"), WithdrawalSuccess)
	assert.Equal(t, WithdrawalStatus("failed"), WithdrawalFailed)
}
