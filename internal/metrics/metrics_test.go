package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherValue(t *testing.T, reg *prometheus.Registry, metric, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != metric {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "name" && l.GetValue() == name {
					return extract(m)
				}
			}
		}
	}
	t.Fatalf("metric %s{name=%s} not found", metric, name)
	return 0
}

func extract(m *dto.Metric) float64 {
	if c := m.GetCounter(); c != nil {
		return c.GetValue()
	}
	return m.GetGauge().GetValue()
}

func TestRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !Registered() {
		t.Fatal("Registered should report true")
	}

	IncStart("ollama")
	IncStart("ollama")
	IncStop("ollama")
	IncLaunchFailure("video-gen")
	IncStaleHandle("ollama")
	SetUp("ollama", 1)
	SetUp("video-gen", 0.5)

	if v := gatherValue(t, reg, "svcup_service_starts_total", "ollama"); v < 2 {
		t.Fatalf("starts_total = %v, want >= 2", v)
	}
	if v := gatherValue(t, reg, "svcup_service_launch_failures_total", "video-gen"); v < 1 {
		t.Fatalf("launch_failures_total = %v, want >= 1", v)
	}
	if v := gatherValue(t, reg, "svcup_service_up", "video-gen"); v != 0.5 {
		t.Fatalf("up gauge = %v, want 0.5", v)
	}
}

func TestRegisterTwiceIsFine(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should tolerate duplicates: %v", err)
	}
}

func TestHandlerNotNil(t *testing.T) {
	if Handler(nil) == nil {
		t.Fatal("nil metrics handler")
	}
}

// Collectors registered on a custom registry must be served by a handler
// built over that same registry.
func TestHandlerServesCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	IncStart("ollama")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "svcup_service_starts_total") {
		t.Fatalf("starts_total missing from exposition:\n%s", body)
	}
}
