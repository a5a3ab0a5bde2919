package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSplitRevenue_EightPercent(t *testing.T) {
	split := SplitRevenue(500000, decimal.NewFromInt(8))

	assert.Equal(t, int64(500000), split.Gross)
	assert.Equal(t, int64(40000), split.PlatformFee)
	assert.Equal(t, int64(460000), split.OrganizerNet)
}

func TestSplitRevenue_SumsToGross(t *testing.T) {
	percents := []string{"0", "2.5", "8", "12.75", "100"}
	amounts := []int64{1, 99, 101, 12345, 500000, 999999937}

	for _, p := range percents {
		fee := decimal.RequireFromString(p)
		for _, gross := range amounts {
			split := SplitRevenue(gross, fee)
			assert.Equal(t, gross, split.PlatformFee+split.OrganizerNet,
				"fee %s of %d must split without losing minor units", p, gross)
			assert.GreaterOrEqual(t, split.PlatformFee, int64(0))
			assert.GreaterOrEqual(t, split.OrganizerNet, int64(0))
		}
	}
}

func TestSplitRevenue_RoundsHalfUp(t *testing.T) {
	// 2.5% of 101 = 2.525, rounds to 3
	split := SplitRevenue(101, decimal.RequireFromString("2.5"))

	assert.Equal(t, int64(3), split.PlatformFee)
	assert.Equal(t, int64(98), split.OrganizerNet)
}

func TestSplitRevenue_ZeroFee(t *testing.T) {
	split := SplitRevenue(500000, decimal.Zero)

	assert.Equal(t, int64(0), split.PlatformFee)
	assert.Equal(t, int64(500000), split.OrganizerNet)
}

func TestSplitRevenue_FullFee(t *testing.T) {
	split := SplitRevenue(500000, decimal.NewFromInt(100))

	assert.Equal(t, int64(500000), split.PlatformFee)
	assert.Equal(t, int64(0), split.OrganizerNet)
}

func TestSplitRevenue_NonPositiveGross(t *testing.T) {
	for _, gross := range []int64{0, -500} {
		split := SplitRevenue(gross, decimal.NewFromInt(8))

		assert.Equal(t, gross, split.Gross)
		assert.Equal(t, int64(0), split.PlatformFee)
		assert.Equal(t, int64(0), split.OrganizerNet)
	}
}
