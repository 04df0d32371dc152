package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func up(context.Context) ComponentHealth   { return ComponentHealth{Status: StatusUp} }
func down(context.Context) ComponentHealth { return ComponentHealth{Status: StatusDown, Message: "gone"} }

func TestRunAggregation(t *testing.T) {
	tests := []struct {
		name     string
		required Check
		optional Check
		want     Status
	}{
		{"all up", up, up, StatusUp},
		{"optional down degrades", up, down, StatusDegraded},
		{"required down", down, up, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			c.Register("index", tt.required)
			c.RegisterOptional("redis", tt.optional)
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s", report.Status, tt.want)
			}
			if len(report.Components) != 2 {
				t.Errorf("components = %d", len(report.Components))
			}
			if !report.Components["redis"].Optional {
				t.Error("redis should be marked optional")
			}
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.RegisterOptional("redis", down)
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("degraded service should be ready, got %d", rec.Code)
	}

	c.Register("index", down)
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
