package prommetrics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-splitpay/core"
	"github.com/prometheus/client_golang/prometheus"
)

var defaultBuckets = []float64{5, 25, 100, 250, 500, 1000, 2500, 5000, 15000}

type Option func(*Recorder)

// WithBuckets overrides histogram buckets. Service durations are reported in
// milliseconds.
func WithBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

// Recorder implements core.MetricsRecorder on prometheus vectors. Each metric
// name gets one vector, created on first use with the label names of that
// call; later calls fill missing labels with "" and drop unknown ones.
type Recorder struct {
	registerer prometheus.Registerer
	buckets    []float64

	mu         sync.Mutex
	counters   map[string]*counterVec
	histograms map[string]*histogramVec
}

type counterVec struct {
	labels []string
	vec    *prometheus.CounterVec
}

type histogramVec struct {
	labels []string
	vec    *prometheus.HistogramVec
}

func NewRecorder(registerer prometheus.Registerer, opts ...Option) *Recorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		registerer: registerer,
		buckets:    defaultBuckets,
		counters:   map[string]*counterVec{},
		histograms: map[string]*histogramVec{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	metric := MetricName(name)
	if metric == "" {
		return
	}
	r.mu.Lock()
	entry, ok := r.counters[metric]
	if !ok {
		labels := labelNames(tags)
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: metric}, labels)
		entry = &counterVec{labels: labels, vec: registerCounter(r.registerer, vec)}
		r.counters[metric] = entry
	}
	r.mu.Unlock()
	entry.vec.With(labelValues(entry.labels, tags)).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	metric := MetricName(name)
	if metric == "" {
		return
	}
	r.mu.Lock()
	entry, ok := r.histograms[metric]
	if !ok {
		labels := labelNames(tags)
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: metric, Buckets: r.buckets}, labels)
		entry = &histogramVec{labels: labels, vec: registerHistogram(r.registerer, vec)}
		r.histograms[metric] = entry
	}
	r.mu.Unlock()
	entry.vec.With(labelValues(entry.labels, tags)).Observe(value)
}

// MetricName turns a dotted service metric name into a prometheus name,
// e.g. "splitpay.checkout.duration_ms" becomes "splitpay_checkout_duration_ms".
func MetricName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name))
	for i, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch == '_', ch == ':':
			b.WriteRune(ch)
		case ch >= '0' && ch <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(ch)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func labelNames(tags map[string]string) []string {
	labels := make([]string, 0, len(tags))
	for key := range tags {
		if label := MetricName(key); label != "" {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}

func labelValues(labels []string, tags map[string]string) prometheus.Labels {
	normalized := make(map[string]string, len(tags))
	for key, value := range tags {
		normalized[MetricName(key)] = value
	}
	out := make(prometheus.Labels, len(labels))
	for _, label := range labels {
		out[label] = normalized[label]
	}
	return out
}

// registerCounter reuses a collector already registered under the same
// descriptor, so two recorders can share one registry.
func registerCounter(registerer prometheus.Registerer, vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := registerer.Register(vec); err != nil {
		if existing, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if shared, ok := existing.ExistingCollector.(*prometheus.CounterVec); ok {
				return shared
			}
		}
	}
	return vec
}

func registerHistogram(registerer prometheus.Registerer, vec *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := registerer.Register(vec); err != nil {
		if existing, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if shared, ok := existing.ExistingCollector.(*prometheus.HistogramVec); ok {
				return shared
			}
		}
	}
	return vec
}

var _ core.MetricsRecorder = (*Recorder)(nil)
