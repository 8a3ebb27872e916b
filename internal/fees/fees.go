// Package fees splits a gross purchase amount into the platform fee, the
// card processor's take, and the owner's net payout. All amounts are integer
// minor units.
package fees

import "math"

const (
	// processorRate and processorFixedCents model the card processor's
	// percentage-plus-surcharge pricing.
	processorRate       = 0.029
	processorFixedCents = 30
)

// Breakdown is the result of splitting a gross amount. The parts always sum
// back to GrossCents exactly.
type Breakdown struct {
	GrossCents        int64 `json:"gross_cents"`
	PlatformFeeCents  int64 `json:"platform_fee_cents"`
	ProcessorFeeCents int64 `json:"processor_fee_cents"`
	OwnerNetCents     int64 `json:"owner_net_cents"`
}

// Split computes the fee breakdown for a non-negative gross amount.
// OwnerNetCents can go negative for very small gross amounts because the
// processor surcharge is fixed; callers accept that rather than hiding it.
func Split(grossCents int64, platformFeePercent float64) Breakdown {
	platformFee := roundHalfAwayFromZero(float64(grossCents) * platformFeePercent / 100)
	processorFee := roundHalfAwayFromZero(float64(grossCents)*processorRate) + processorFixedCents

	return Breakdown{
		GrossCents:        grossCents,
		PlatformFeeCents:  platformFee,
		ProcessorFeeCents: processorFee,
		OwnerNetCents:     grossCents - platformFee - processorFee,
	}
}

// roundHalfAwayFromZero matches commercial rounding: 0.5 rounds up in
// magnitude, never to even.
func roundHalfAwayFromZero(v float64) int64 {
	if v >= 0 {
		return int64(math.Floor(v + 0.5))
	}
	return int64(math.Ceil(v - 0.5))
}
