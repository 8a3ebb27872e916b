package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics holds the engine's prometheus instruments. Services take it as an
// optional dependency so tests can wire services without a registry.
type Metrics struct {
	webhookEvents *prometheus.CounterVec
	refundsIssued *prometheus.CounterVec
	refundAmount  prometheus.Counter
	httpRequests  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paywall_webhook_events_total",
			Help: "Webhook events processed, by provider and event type.",
		}, []string{"provider", "type"}),
		refundsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paywall_refunds_issued_total",
			Help: "Refunds issued, by applied rule.",
		}, []string{"rule"}),
		refundAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paywall_refund_amount_cents_total",
			Help: "Total refunded amount in cents.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paywall_http_requests_total",
			Help: "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
	}

	for _, c := range []prometheus.Collector{m.webhookEvents, m.refundsIssued, m.refundAmount, m.httpRequests} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordWebhookEvent(provider, eventType string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(provider, eventType).Inc()
}

func (m *Metrics) RecordRefund(rule string, amountCents int64) {
	if m == nil {
		return
	}
	m.refundsIssued.WithLabelValues(rule).Inc()
	m.refundAmount.Add(float64(amountCents))
}

func (m *Metrics) RecordHTTPRequest(method, route, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
}

var Module = fx.Module("observability",
	fx.Provide(func() *prometheus.Registry { return prometheus.NewRegistry() }),
	fx.Provide(func(reg *prometheus.Registry) prometheus.Registerer { return reg }),
	fx.Provide(NewMetrics),
)
