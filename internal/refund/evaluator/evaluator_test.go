package evaluator

import (
	"testing"

	"github.com/courtside/paywall/internal/config"
	playbackdomain "github.com/courtside/paywall/internal/playback/domain"
	"github.com/stretchr/testify/require"
)

func policy() config.RefundPolicy {
	return config.DefaultRefundPolicy()
}

func TestEvaluateBelowWatchFloorNeverEligible(t *testing.T) {
	telemetry := playbackdomain.TelemetrySummary{
		WatchMs:      29_999,
		BufferMs:     29_999, // ratio 1.0, way past every threshold
		BufferEvents: 100,
		FatalErrors:  10,
	}

	result := Evaluate(1000, telemetry, 0, policy())
	require.False(t, result.Eligible)
	require.Zero(t, result.AmountCents)
}

func TestEvaluateFullRefundOnBufferRatio(t *testing.T) {
	telemetry := playbackdomain.TelemetrySummary{
		WatchMs:  100_000,
		BufferMs: 25_000, // ratio 0.25 > 0.20
	}

	result := Evaluate(1000, telemetry, 0, policy())
	require.True(t, result.Eligible)
	require.EqualValues(t, 1000, result.AmountCents)
	require.Equal(t, RuleFullBufferRatio, result.AppliedRule)
	require.Equal(t, ReasonBufferRatio, result.ReasonCode)
	require.InDelta(t, 0.25, result.BufferRatio, 1e-9)
}

func TestEvaluateHalfRefundOnBufferRatio(t *testing.T) {
	telemetry := playbackdomain.TelemetrySummary{
		WatchMs:  100_000,
		BufferMs: 12_000, // ratio 0.12, in (0.10, 0.20]
	}

	result := Evaluate(1000, telemetry, 0, policy())
	require.True(t, result.Eligible)
	require.EqualValues(t, 500, result.AmountCents)
	require.Equal(t, RuleHalfBufferRatio, result.AppliedRule)
}

func TestEvaluatePartialRefundOnBufferEvents(t *testing.T) {
	telemetry := playbackdomain.TelemetrySummary{
		WatchMs:      600_000,
		BufferMs:     6_000, // ratio 0.01, below half threshold
		BufferEvents: 11,
	}

	result := Evaluate(1000, telemetry, 0, policy())
	require.True(t, result.Eligible)
	require.EqualValues(t, 250, result.AmountCents)
	require.Equal(t, RulePartialBuffering, result.AppliedRule)
	require.Equal(t, ReasonExcessiveBuffering, result.ReasonCode)
}

func TestEvaluateFullFatalErrorsRequiresShortWatch(t *testing.T) {
	telemetry := playbackdomain.TelemetrySummary{
		WatchMs:     240_000, // 4 minutes, under the 5 minute cap
		FatalErrors: 3,
	}
	result := Evaluate(2000, telemetry, 0, policy())
	require.True(t, result.Eligible)
	require.EqualValues(t, 2000, result.AmountCents)
	require.Equal(t, RuleFullFatalErrors, result.AppliedRule)

	// Same errors after a long watch: tier 1 and 2 both miss.
	telemetry.WatchMs = 3_600_000
	result = Evaluate(2000, telemetry, 0, policy())
	require.False(t, result.Eligible)
}

func TestEvaluateHalfFatalErrorWindow(t *testing.T) {
	telemetry := playbackdomain.TelemetrySummary{
		WatchMs:     90_000, // 1.5 minutes
		FatalErrors: 1,
	}
	result := Evaluate(1001, telemetry, 0, policy())
	require.True(t, result.Eligible)
	require.EqualValues(t, 500, result.AmountCents) // floored
	require.Equal(t, RuleHalfFatalErrors, result.AppliedRule)
}

func TestEvaluateTiersDoNotStack(t *testing.T) {
	// Matches tier 1 by ratio and tier 3 by buffer events; only tier 1
	// applies.
	telemetry := playbackdomain.TelemetrySummary{
		WatchMs:      100_000,
		BufferMs:     30_000,
		BufferEvents: 50,
	}
	result := Evaluate(1000, telemetry, 0, policy())
	require.EqualValues(t, 1000, result.AmountCents)
	require.Equal(t, RuleFullBufferRatio, result.AppliedRule)
}

func TestEvaluateDowntimeRatio(t *testing.T) {
	telemetry := playbackdomain.TelemetrySummary{
		WatchMs:      100_000,
		StreamDownMs: 30_000,
	}
	// Expected duration 100s → downtime ratio 0.30.
	result := Evaluate(1000, telemetry, 100_000, policy())
	require.True(t, result.Eligible)
	require.Equal(t, RuleFullDowntimeRatio, result.AppliedRule)

	// Unknown duration keeps the ratio at zero.
	result = Evaluate(1000, telemetry, 0, policy())
	require.False(t, result.Eligible)
	require.Zero(t, result.DowntimeRatio)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	telemetry := playbackdomain.TelemetrySummary{
		WatchMs:      100_000,
		BufferMs:     15_000,
		BufferEvents: 4,
		FatalErrors:  0,
	}

	first := Evaluate(999, telemetry, 3_600_000, policy())
	for i := 0; i < 50; i++ {
		require.Equal(t, first, Evaluate(999, telemetry, 3_600_000, policy()))
	}
}

func TestEvaluateRuleVersionAlwaysStamped(t *testing.T) {
	result := Evaluate(1000, playbackdomain.TelemetrySummary{}, 0, policy())
	require.Equal(t, policy().RuleVersion, result.RuleVersion)
}
