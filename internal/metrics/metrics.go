// Package metrics exposes Prometheus instrumentation for model inference.
//
// A nil *Metrics is valid and records nothing, so components can take an
// optional collector without branching.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors of one model instance.
type Metrics struct {
	ForwardPasses     prometheus.Counter
	DecodeSteps       prometheus.Counter
	EarlyStops        prometheus.Counter
	GeneratedTokens   prometheus.Counter
	Translations      *prometheus.CounterVec
	TranslateDuration prometheus.Histogram
	NonFiniteLogits   prometheus.Counter
	SnapshotLoads     *prometheus.CounterVec
	SourceLength      prometheus.Histogram
}

// New registers the collectors with reg. Use prometheus.NewRegistry() in
// tests to keep registrations isolated.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ForwardPasses: f.NewCounter(prometheus.CounterOpts{
			Name: "lingua_forward_passes_total",
			Help: "Teacher-forced forward passes computed",
		}),
		DecodeSteps: f.NewCounter(prometheus.CounterOpts{
			Name: "lingua_decode_steps_total",
			Help: "Greedy decoding steps executed",
		}),
		EarlyStops: f.NewCounter(prometheus.CounterOpts{
			Name: "lingua_decode_early_stops_total",
			Help: "Greedy decodes that ended before the step limit",
		}),
		GeneratedTokens: f.NewCounter(prometheus.CounterOpts{
			Name: "lingua_generated_tokens_total",
			Help: "Tokens produced by greedy decoding, padding excluded",
		}),
		Translations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lingua_translations_total",
			Help: "Translation requests by outcome",
		}, []string{"status"}),
		TranslateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lingua_translate_duration_seconds",
			Help:    "Wall time of one batched greedy decode",
			Buckets: prometheus.DefBuckets,
		}),
		NonFiniteLogits: f.NewCounter(prometheus.CounterOpts{
			Name: "lingua_nonfinite_logits_total",
			Help: "Decode steps whose logits contained NaN or Inf",
		}),
		SnapshotLoads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lingua_snapshot_loads_total",
			Help: "Parameter snapshot loads by outcome",
		}, []string{"status"}),
		SourceLength: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lingua_source_length_tokens",
			Help:    "Padded source length of translation batches",
			Buckets: []float64{8, 16, 32, 64, 128, 256, 512},
		}),
	}
}

// RecordForward counts one training-mode forward pass.
func (m *Metrics) RecordForward() {
	if m == nil {
		return
	}
	m.ForwardPasses.Inc()
}

// RecordDecode records the outcome of one greedy decode.
func (m *Metrics) RecordDecode(steps, tokens int, earlyStop bool, d time.Duration) {
	if m == nil {
		return
	}
	m.DecodeSteps.Add(float64(steps))
	m.GeneratedTokens.Add(float64(tokens))
	if earlyStop {
		m.EarlyStops.Inc()
	}
	m.TranslateDuration.Observe(d.Seconds())
}

// RecordNonFinite counts a decode step with NaN or Inf logits.
func (m *Metrics) RecordNonFinite() {
	if m == nil {
		return
	}
	m.NonFiniteLogits.Inc()
}

// RecordTranslation counts a service-level translation by status ("ok", "error", "canceled").
func (m *Metrics) RecordTranslation(status string, sourceLen int) {
	if m == nil {
		return
	}
	m.Translations.WithLabelValues(status).Inc()
	if sourceLen > 0 {
		m.SourceLength.Observe(float64(sourceLen))
	}
}

// RecordSnapshotLoad counts a snapshot load attempt.
func (m *Metrics) RecordSnapshotLoad(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SnapshotLoads.WithLabelValues(status).Inc()
}
