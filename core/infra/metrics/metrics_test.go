package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// isolatedRegistry swaps the default registry so NewProm can register per test.
func isolatedRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	prevReg, prevGather := prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	prometheus.DefaultRegisterer, prometheus.DefaultGatherer = reg, reg
	t.Cleanup(func() {
		prometheus.DefaultRegisterer, prometheus.DefaultGatherer = prevReg, prevGather
	})
	return reg
}

func TestNoopMetrics(t *testing.T) {
	var m Metrics = Noop{}
	m.IncObjectsPrepared("stub")
	m.IncObjectsIngested("Item")
	m.IncIngestFailed("attach_content")
	m.IncObjectsPostProcessed("Item")
	m.IncObjectsValidated("success")
	m.IncCheckResult("ledger", "pass")
	m.ObservePhaseDuration("ingest", 0.1)
}

func TestPromMetrics(t *testing.T) {
	reg := isolatedRegistry(t)
	m := NewProm("depositor")
	m.IncObjectsPrepared("marcxml")
	m.IncObjectsIngested("Item")
	m.IncIngestFailed("resolve_parent")
	m.IncObjectsPostProcessed("Item")
	m.IncObjectsValidated("failure")
	m.IncCheckResult("external_checksum", "fail")
	m.ObservePhaseDuration("validate", 0.25)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	expect := []struct {
		name   string
		labels map[string]string
	}{
		{"depositor_objects_prepared_total", map[string]string{"source": "marcxml"}},
		{"depositor_objects_ingested_total", map[string]string{"model": "Item"}},
		{"depositor_ingest_failures_total", map[string]string{"step": "resolve_parent"}},
		{"depositor_objects_post_processed_total", map[string]string{"model": "Item"}},
		{"depositor_objects_validated_total", map[string]string{"outcome": "failure"}},
		{"depositor_validation_checks_total", map[string]string{"check": "external_checksum", "outcome": "fail"}},
		{"depositor_phase_duration_seconds", map[string]string{"phase": "validate"}},
	}
	for _, want := range expect {
		got, ok := sample(families, want.name, want.labels)
		if !ok {
			t.Fatalf("missing metric %s %v", want.name, want.labels)
		}
		if got != 1 {
			t.Fatalf("metric %s %v = %v, want 1", want.name, want.labels, got)
		}
	}
}

func TestHandler(t *testing.T) {
	isolatedRegistry(t)
	m := NewProm("depositor")
	m.IncObjectsIngested("Component")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `depositor_objects_ingested_total{model="Component"} 1`) {
		t.Fatalf("expected ingest counter in output:\n%s", rec.Body.String())
	}
}

// sample returns the counter value or histogram sample count for the series
// of name carrying every label in labels.
func sample(families []*dto.MetricFamily, name string, labels map[string]string) (float64, bool) {
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
	series:
		for _, m := range fam.GetMetric() {
			got := make(map[string]string, len(m.GetLabel()))
			for _, pair := range m.GetLabel() {
				got[pair.GetName()] = pair.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue series
				}
			}
			if h := m.GetHistogram(); h != nil {
				return float64(h.GetSampleCount()), true
			}
			return m.GetCounter().GetValue(), true
		}
	}
	return 0, false
}
