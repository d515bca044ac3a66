package seq2seq

import (
	"github.com/rs/zerolog"

	"github.com/born-ml/lingua/internal/logger"
	"github.com/born-ml/lingua/internal/metrics"
)

// Option configures a Transformer at construction.
type Option func(*Transformer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Transformer) {
		t.log = logger.Component(l, "seq2seq")
	}
}

// WithMetrics sets the Prometheus collectors. nil disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Transformer) {
		t.metrics = m
	}
}

// CallOption configures a single Forward or Translate call.
type CallOption func(*callOptions)

type callOptions struct {
	capture bool
}

// WithCapture asks for attention maps. They are returned only when the model
// was built with Config.CaptureAttention set.
func WithCapture() CallOption {
	return func(o *callOptions) {
		o.capture = true
	}
}

func resolveCallOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
