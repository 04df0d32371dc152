// Package proto defines the messages exchanged over the router's JSON RPC
// transport (see pkg/rpc) and returned by its HTTP API.
package proto

import "time"

// Method names served by the router.
const (
	MethodRoute  = "Router.Route"
	MethodHealth = "Router.Health"
)

// RouteRequest is the input to Router.Route.
type RouteRequest struct {
	Query string `json:"query"`
}

// RouteResponse is a routed query's documents, provenance and latency.
type RouteResponse struct {
	Query      string     `json:"query"`
	Intent     string     `json:"intent"`
	Confidence float64    `json:"confidence"`
	Provenance string     `json:"provenance"`
	LatencyMs  float64    `json:"latency_ms"`
	Documents  []Document `json:"documents"`
	Live       *LiveData  `json:"live,omitempty"`
	Stale      bool       `json:"stale"`
	Degraded   bool       `json:"degraded"`
	Reasons    []string   `json:"reasons,omitempty"`
	Trace      []string   `json:"trace,omitempty"`
	// Message is set when no documents were found.
	Message string `json:"message,omitempty"`
}

// Document is one ranked grounding document.
type Document struct {
	ID       string            `json:"id"`
	Domain   string            `json:"domain"`
	Title    string            `json:"title"`
	Text     string            `json:"text"`
	Fields   map[string]string `json:"fields,omitempty"`
	Keywords []string          `json:"keywords,omitempty"`
	Score    float64           `json:"score"`
	Source   string            `json:"source"`
}

// LiveData summarizes the live lookup merged into a response.
type LiveData struct {
	Course    string    `json:"course"`
	Semester  string    `json:"semester"`
	Field     string    `json:"field"`
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale"`
	OpenSeats int       `json:"open_seats"`
	Summary   string    `json:"summary"`
}

// HealthCheckResponse mirrors the gRPC health check convention.
type HealthCheckResponse struct {
	Status string `json:"status"` // SERVING, NOT_SERVING
}
