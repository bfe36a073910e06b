package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func withTestRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	origReg := prometheus.DefaultRegisterer
	origGather := prometheus.DefaultGatherer
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGather
	})
	return reg
}

func TestNoopMetrics(t *testing.T) {
	var m Noop
	m.IncAnswers("English", "answered")
	m.IncConfidence("English", "High")
	m.ObserveGeneration("English", 0.2)
	m.IncTruncations("German")
}

func TestPromMetrics(t *testing.T) {
	reg := withTestRegistry(t)
	m := NewProm("mlqa")
	m.IncAnswers("English", "answered")
	m.IncConfidence("German", "High")
	m.ObserveGeneration("English", 0.3)
	m.IncTruncations("German")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if !hasMetric(families, "mlqa_answers_total", map[string]string{"language": "English", "outcome": "answered"}) {
		t.Fatalf("expected answers metric")
	}
	if !hasMetric(families, "mlqa_answer_confidence_total", map[string]string{"language": "German", "level": "High"}) {
		t.Fatalf("expected confidence metric")
	}
	if !hasMetric(families, "mlqa_generation_duration_seconds", map[string]string{"language": "English"}) {
		t.Fatalf("expected generation histogram")
	}
	if !hasMetric(families, "mlqa_input_truncations_total", map[string]string{"language": "German"}) {
		t.Fatalf("expected truncation metric")
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	withTestRegistry(t)
	NewProm("mlqa").IncAnswers("English", "rejected")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mlqa_answers_total") {
		t.Fatalf("expected answers metric in output")
	}
}

func hasMetric(families []*dto.MetricFamily, name string, labels map[string]string) bool {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m.GetLabel(), labels) {
				return true
			}
		}
	}
	return false
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	got := make(map[string]string, len(pairs))
	for _, p := range pairs {
		got[p.GetName()] = p.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}
