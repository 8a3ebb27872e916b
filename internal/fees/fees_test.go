package fees

import "testing"

func TestSplitPartsSumToGross(t *testing.T) {
	grosses := []int64{0, 1, 29, 30, 99, 100, 999, 1000, 2499, 10_000, 123_456, 99_999_999}
	percents := []float64{0, 2.5, 10, 12.5, 20, 33.3, 100}

	for _, gross := range grosses {
		for _, pct := range percents {
			got := Split(gross, pct)
			sum := got.PlatformFeeCents + got.ProcessorFeeCents + got.OwnerNetCents
			if sum != gross {
				t.Fatalf("split(%d, %v): parts sum to %d, want %d", gross, pct, sum, gross)
			}
		}
	}
}

func TestSplitKnownValues(t *testing.T) {
	got := Split(10_000, 10)
	if got.PlatformFeeCents != 1000 {
		t.Fatalf("platform fee = %d, want 1000", got.PlatformFeeCents)
	}
	// 10000 * 0.029 = 290, plus the 30 cent surcharge.
	if got.ProcessorFeeCents != 320 {
		t.Fatalf("processor fee = %d, want 320", got.ProcessorFeeCents)
	}
	if got.OwnerNetCents != 8680 {
		t.Fatalf("owner net = %d, want 8680", got.OwnerNetCents)
	}
}

func TestSplitRoundsHalfAwayFromZero(t *testing.T) {
	// 50 * 0.029 = 1.45 → 1; platform 50 * 5% = 2.5 → 3 (not banker's 2).
	got := Split(50, 5)
	if got.PlatformFeeCents != 3 {
		t.Fatalf("platform fee = %d, want 3", got.PlatformFeeCents)
	}
	if got.ProcessorFeeCents != 31 {
		t.Fatalf("processor fee = %d, want 31", got.ProcessorFeeCents)
	}
}

func TestSplitTinyGrossGoesNegative(t *testing.T) {
	// The fixed surcharge exceeds a 10 cent purchase; net is negative and
	// kept that way on purpose.
	got := Split(10, 10)
	if got.OwnerNetCents >= 0 {
		t.Fatalf("owner net = %d, want negative", got.OwnerNetCents)
	}
	if got.PlatformFeeCents+got.ProcessorFeeCents+got.OwnerNetCents != 10 {
		t.Fatalf("parts do not sum to gross")
	}
}
