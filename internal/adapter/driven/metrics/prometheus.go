// Package metrics provides Prometheus metrics for the bounty pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

const namespace = "bountybot"

var _ driven.Recorder = (*Manager)(nil)

// Manager owns the bot's collectors and the registry they live in.
type Manager struct {
	registry *prometheus.Registry

	eventsHandled     *prometheus.CounterVec
	payoutSkips       *prometheus.CounterVec
	permitsIssued     *prometheus.CounterVec
	permitAmount      *prometheus.CounterVec
	fallbacksRecorded *prometheus.CounterVec
}

// NewManager registers all collectors on a fresh registry, plus the Go
// runtime and process collectors.
func NewManager() *Manager {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Manager{
		registry: reg,
		eventsHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_handled_total",
			Help:      "Webhook events dispatched, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		payoutSkips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payout_skips_total",
			Help:      "Payouts skipped by an eligibility gate, by reason.",
		}, []string{"reason"}),
		permitsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permits_issued_total",
			Help:      "Signed permits, by reward title.",
		}, []string{"title"}),
		permitAmount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permit_amount_total",
			Help:      "Sum of permitted token amounts, by reward title.",
		}, []string{"title"}),
		fallbacksRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_rewards_total",
			Help:      "Rewards held back because the recipient had no wallet.",
		}, []string{"title"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// EventHandled counts one dispatched event.
func (m *Manager) EventHandled(kind, outcome string) {
	m.eventsHandled.WithLabelValues(kind, outcome).Inc()
}

// PayoutSkipped counts one gate rejection.
func (m *Manager) PayoutSkipped(reason string) {
	m.payoutSkips.WithLabelValues(reason).Inc()
}

// PermitIssued counts a permit and adds its amount.
func (m *Manager) PermitIssued(title model.RewardTitle, amount decimal.Decimal) {
	m.permitsIssued.WithLabelValues(string(title)).Inc()
	m.permitAmount.WithLabelValues(string(title)).Add(amount.InexactFloat64())
}

// FallbackRecorded counts a reward held for manual payout.
func (m *Manager) FallbackRecorded(title model.RewardTitle) {
	m.fallbacksRecorded.WithLabelValues(string(title)).Inc()
}

var _ driven.Recorder = Nop{}

// Nop discards all metrics.
type Nop struct{}

func (Nop) EventHandled(string, string)                     {}
func (Nop) PayoutSkipped(string)                            {}
func (Nop) PermitIssued(model.RewardTitle, decimal.Decimal) {}
func (Nop) FallbackRecorded(model.RewardTitle)              {}
