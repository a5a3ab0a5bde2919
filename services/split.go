package services

import (
	"github.com/shopspring/decimal"
)

// RevenueSplit is the division of one gross charge between the platform
// and an organizer. PlatformFee + OrganizerNet always equals Gross.
type RevenueSplit struct {
	Gross        int64
	PlatformFee  int64
	OrganizerNet int64
}

var hundred = decimal.NewFromInt(100)

// SplitRevenue computes the platform fee as round-half-up of
// gross*feePercent/100 at minor-unit granularity. The organizer net is
// derived as the remainder, never computed independently, so no minor
// unit is ever lost or created by rounding.
func SplitRevenue(gross int64, feePercent decimal.Decimal) RevenueSplit {
	if gross <= 0 {
		return RevenueSplit{Gross: gross}
	}

	// decimal.Round rounds half away from zero, which is round-half-up
	// for non-negative amounts.
	fee := decimal.NewFromInt(gross).Mul(feePercent).Div(hundred).Round(0).IntPart()

	return RevenueSplit{
		Gross:        gross,
		PlatformFee:  fee,
		OrganizerNet: gross - fee,
	}
}
