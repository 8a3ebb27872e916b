package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RefundPolicy is the tiered refund-eligibility ruleset. Thresholds are
// operator-tunable; RuleVersion is stamped on every evaluation so historical
// refunds stay auditable after a threshold change.
type RefundPolicy struct {
	RuleVersion           string  `mapstructure:"ruleVersion"`
	MinWatchTimeMs        int64   `mapstructure:"minWatchTimeMs"`
	FullRefundRatio       float64 `mapstructure:"fullRefundRatio"`
	HalfRefundRatio       float64 `mapstructure:"halfRefundRatio"`
	PartialRefundPercent  int64   `mapstructure:"partialRefundPercent"`
	ExcessiveBufferEvents int64   `mapstructure:"excessiveBufferEvents"`
}

func DefaultRefundPolicy() RefundPolicy {
	return RefundPolicy{
		RuleVersion:           "2024-06-01",
		MinWatchTimeMs:        30_000,
		FullRefundRatio:       0.20,
		HalfRefundRatio:       0.10,
		PartialRefundPercent:  25,
		ExcessiveBufferEvents: 10,
	}
}

// RefundPolicyHolder serves the current policy snapshot to concurrent
// evaluations while the file watcher swaps it underneath.
type RefundPolicyHolder struct {
	current atomic.Value // holds RefundPolicy
}

func NewRefundPolicyHolder(log *zap.Logger) (*RefundPolicyHolder, error) {
	log = log.Named("refund.policy")
	v := viper.New()

	v.SetConfigName("refunds")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/paywall/config")
	v.AddConfigPath("/etc/paywall")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PAYWALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRefundPolicy()
	v.SetDefault("refunds.ruleVersion", defaults.RuleVersion)
	v.SetDefault("refunds.minWatchTimeMs", defaults.MinWatchTimeMs)
	v.SetDefault("refunds.fullRefundRatio", defaults.FullRefundRatio)
	v.SetDefault("refunds.halfRefundRatio", defaults.HalfRefundRatio)
	v.SetDefault("refunds.partialRefundPercent", defaults.PartialRefundPercent)
	v.SetDefault("refunds.excessiveBufferEvents", defaults.ExcessiveBufferEvents)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy RefundPolicy
	if err := v.UnmarshalKey("refunds", &policy); err != nil {
		return nil, err
	}
	if err := validateRefundPolicy(policy); err != nil {
		return nil, err
	}

	holder := &RefundPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RefundPolicy
		if err := v.UnmarshalKey("refunds", &updated); err != nil {
			log.Warn("policy reload failed", zap.Error(err))
			return
		}
		if err := validateRefundPolicy(updated); err != nil {
			log.Warn("invalid policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("policy reloaded",
			zap.String("file", e.Name),
			zap.String("rule_version", updated.RuleVersion),
		)
	})

	return holder, nil
}

// NewStaticRefundPolicyHolder wraps a fixed policy, used by tests.
func NewStaticRefundPolicyHolder(policy RefundPolicy) *RefundPolicyHolder {
	holder := &RefundPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *RefundPolicyHolder) Get() RefundPolicy {
	return h.current.Load().(RefundPolicy)
}

func validateRefundPolicy(policy RefundPolicy) error {
	if strings.TrimSpace(policy.RuleVersion) == "" {
		return errors.New("refunds.ruleVersion cannot be empty")
	}
	if policy.MinWatchTimeMs < 0 {
		return errors.New("refunds.minWatchTimeMs cannot be negative")
	}
	if policy.HalfRefundRatio <= 0 || policy.FullRefundRatio <= policy.HalfRefundRatio {
		return errors.New("refunds.fullRefundRatio must exceed halfRefundRatio")
	}
	if policy.PartialRefundPercent <= 0 || policy.PartialRefundPercent > 100 {
		return errors.New("refunds.partialRefundPercent must be in (0, 100]")
	}
	if policy.ExcessiveBufferEvents < 0 {
		return errors.New("refunds.excessiveBufferEvents cannot be negative")
	}
	return nil
}
