package analytics

import "time"

type EventType string

const (
	EventRoute      EventType = "route"
	EventZeroResult EventType = "zero_result"
)

// RouteEvent summarizes one routed query.
type RouteEvent struct {
	Type       EventType `json:"type"`
	RequestID  string    `json:"request_id"`
	Query      string    `json:"query"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Provenance string    `json:"provenance"`
	Hits       int       `json:"hits"`
	Stale      bool      `json:"stale"`
	Degraded   bool      `json:"degraded"`
	Stages     []string  `json:"stages"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
