package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records answer-engine activity.
type Metrics interface {
	IncAnswers(language, outcome string)
	IncConfidence(language, level string)
	ObserveGeneration(language string, durationSeconds float64)
	IncTruncations(language string)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncAnswers(string, string)         {}
func (Noop) IncConfidence(string, string)      {}
func (Noop) ObserveGeneration(string, float64) {}
func (Noop) IncTruncations(string)             {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	answers     *prometheus.CounterVec
	confidence  *prometheus.CounterVec
	generation  *prometheus.HistogramVec
	truncations *prometheus.CounterVec
	once        sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answer requests by language and outcome",
		}, []string{"language", "outcome"}),
		confidence: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_confidence_total",
			Help:      "Generated answers by language and confidence label",
		}, []string{"language", "level"}),
		generation: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Model generation latency by language",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"language"}),
		truncations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_truncations_total",
			Help:      "Prompts truncated to the input bound, by language",
		}, []string{"language"}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.answers, p.confidence, p.generation, p.truncations)
	})
}

func (p *Prom) IncAnswers(language, outcome string) {
	p.answers.WithLabelValues(language, outcome).Inc()
}

func (p *Prom) IncConfidence(language, level string) {
	p.confidence.WithLabelValues(language, level).Inc()
}

func (p *Prom) ObserveGeneration(language string, durationSeconds float64) {
	p.generation.WithLabelValues(language).Observe(durationSeconds)
}

func (p *Prom) IncTruncations(language string) {
	p.truncations.WithLabelValues(language).Inc()
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
