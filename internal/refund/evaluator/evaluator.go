// Package evaluator is the pure refund-eligibility decision function. It has
// no side effects and no clock: identical inputs always produce the same
// tier, amount, and applied rule.
package evaluator

import (
	"time"

	"github.com/courtside/paywall/internal/config"
	playbackdomain "github.com/courtside/paywall/internal/playback/domain"
)

// Applied rule identifiers, named tier-first, condition-second. The tier-1
// conditions are checked in this order, so the first one to fire names the
// rule.
const (
	RuleFullBufferRatio   = "full_buffer_ratio"
	RuleFullDowntimeRatio = "full_downtime_ratio"
	RuleFullFatalErrors   = "full_fatal_errors"
	RuleHalfBufferRatio   = "half_buffer_ratio"
	RuleHalfDowntimeRatio = "half_downtime_ratio"
	RuleHalfFatalErrors   = "half_fatal_errors"
	RulePartialBuffering  = "partial_excessive_buffering"
)

const (
	ReasonBufferRatio        = "buffer_ratio_exceeded"
	ReasonDowntimeRatio      = "downtime_ratio_exceeded"
	ReasonFatalErrors        = "fatal_playback_errors"
	ReasonExcessiveBuffering = "excessive_buffering"
)

type Result struct {
	Eligible      bool
	AmountCents   int64
	ReasonCode    string
	AppliedRule   string
	RuleVersion   string
	BufferRatio   float64
	DowntimeRatio float64
}

// Evaluate applies the tiered ruleset to an entitlement's aggregated
// telemetry. The first matching tier wins; tiers never stack. A purchase
// below the minimum watch-time floor is never eligible, whatever its
// metrics look like, to keep barely-touched purchases from becoming a
// trivial abuse vector.
func Evaluate(purchaseAmountCents int64, telemetry playbackdomain.TelemetrySummary, expectedDurationMs int64, policy config.RefundPolicy) Result {
	result := Result{
		RuleVersion:   policy.RuleVersion,
		BufferRatio:   ratio(telemetry.BufferMs, telemetry.WatchMs),
		DowntimeRatio: ratio(telemetry.StreamDownMs, expectedDurationMs),
	}

	if telemetry.WatchMs < policy.MinWatchTimeMs {
		return result
	}

	// Tier 1: full refund.
	switch {
	case result.BufferRatio > policy.FullRefundRatio:
		return eligible(result, purchaseAmountCents, ReasonBufferRatio, RuleFullBufferRatio)
	case result.DowntimeRatio > policy.FullRefundRatio:
		return eligible(result, purchaseAmountCents, ReasonDowntimeRatio, RuleFullDowntimeRatio)
	case telemetry.FatalErrors >= 3 && telemetry.WatchMs < (5*time.Minute).Milliseconds():
		return eligible(result, purchaseAmountCents, ReasonFatalErrors, RuleFullFatalErrors)
	}

	// Tier 2: half refund, floored.
	half := purchaseAmountCents / 2
	switch {
	case result.BufferRatio > policy.HalfRefundRatio && result.BufferRatio <= policy.FullRefundRatio:
		return eligible(result, half, ReasonBufferRatio, RuleHalfBufferRatio)
	case result.DowntimeRatio > policy.HalfRefundRatio && result.DowntimeRatio <= policy.FullRefundRatio:
		return eligible(result, half, ReasonDowntimeRatio, RuleHalfDowntimeRatio)
	case telemetry.FatalErrors >= 1 && telemetry.WatchMs < (2*time.Minute).Milliseconds():
		return eligible(result, half, ReasonFatalErrors, RuleHalfFatalErrors)
	}

	// Tier 3: partial refund on buffering event count alone.
	if telemetry.BufferEvents > policy.ExcessiveBufferEvents {
		partial := purchaseAmountCents * policy.PartialRefundPercent / 100
		return eligible(result, partial, ReasonExcessiveBuffering, RulePartialBuffering)
	}

	return result
}

func eligible(result Result, amount int64, reason, rule string) Result {
	result.Eligible = true
	result.AmountCents = amount
	result.ReasonCode = reason
	result.AppliedRule = rule
	return result
}

func ratio(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
