package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/live"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/retriever"
	apperrors "github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/rpc"
)

type stubRouter struct {
	res  *retriever.Result
	seen []string
}

func (s *stubRouter) Route(_ context.Context, raw string) *retriever.Result {
	s.seen = append(s.seen, raw)
	return s.res
}

type stubLive struct {
	semester string
}

func (s *stubLive) Stats() live.Stats { return live.Stats{Semester: s.semester, Fetches: 3} }

func (s *stubLive) Rollover(_ context.Context, semester string) (int64, error) {
	if semester == "winter 1999" {
		return 0, fmt.Errorf("%w: unknown semester", apperrors.ErrInvalidInput)
	}
	s.semester = live.NormalizeSemester(semester)
	return 4, nil
}

func hitResult() *retriever.Result {
	return &retriever.Result{
		Hits: []retriever.Hit{{
			Document: &corpus.Document{ID: "EECS 700", Domain: corpus.DomainCourse, Title: "Special Topics",
				Fields: map[string]string{corpus.FieldCode: "EECS 700", "live_open_seats": "8"}},
			Score:  1000,
			Source: retriever.SourceCourseCode,
		}},
		Provenance: retriever.ProvenanceFastPathLive,
		Latency:    1500 * time.Microsecond,
		Intent:     query.IntentCourseInfo,
		Confidence: 0.95,
		Live: &live.Payload{Course: "EECS 700", Semester: "spring 2026", Field: query.LiveSeats,
			Sections: []live.Section{{Type: "LEC", Seats: 8, Status: live.StatusOpen}}},
	}
}

func newMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func TestRouteEndpoint(t *testing.T) {
	r := &stubRouter{res: hitResult()}
	mux := newMux(New(r, nil, 0))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/route?q=EECS+700+seats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp proto.RouteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Provenance != "fast_path+live_lookup" || resp.Intent != "course_info" || resp.LatencyMs != 1.5 {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Documents) != 1 || resp.Documents[0].Fields["live_open_seats"] != "8" {
		t.Errorf("documents = %+v", resp.Documents)
	}
	if resp.Live == nil || resp.Live.OpenSeats != 8 {
		t.Errorf("live = %+v", resp.Live)
	}
	if r.seen[0] != "EECS 700 seats" {
		t.Errorf("router saw %q", r.seen[0])
	}
}

func TestRouteEndpointEmptyAndInvalid(t *testing.T) {
	r := &stubRouter{res: &retriever.Result{Provenance: retriever.ProvenanceNone}}
	mux := newMux(New(r, nil, 16))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/route?q=xyzzy", nil))
	var resp proto.RouteResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if rec.Code != http.StatusOK || resp.Message != apperrors.ErrEmptyResult.Error() || resp.Provenance != "none" {
		t.Errorf("empty result: status=%d resp=%+v", rec.Code, resp)
	}

	for _, target := range []string{"/api/v1/route", "/api/v1/route?q=+++", "/api/v1/route?q=" + strings.Repeat("a", 17)} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", target, rec.Code)
		}
	}
	if len(r.seen) != 1 {
		t.Errorf("invalid queries reached the router: %v", r.seen)
	}
}

func TestLiveEndpoints(t *testing.T) {
	l := &stubLive{semester: "spring 2026"}
	mux := newMux(New(&stubRouter{}, l, 0))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/live/stats", nil))
	var stats live.Stats
	json.NewDecoder(rec.Body).Decode(&stats)
	if stats.Semester != "spring 2026" || stats.Fetches != 3 {
		t.Errorf("stats = %+v", stats)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/live/rollover", strings.NewReader(`{"semester":"Fall 2025"}`)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"keys_deleted":4`) || l.semester != "fall 2025" {
		t.Errorf("rollover: %d %s", rec.Code, rec.Body)
	}

	for _, body := range []string{`{}`, `not json`, `{"semester":"winter 1999"}`} {
		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/live/rollover", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", body, rec.Code)
		}
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/live/rollover", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET rollover status = %d", rec.Code)
	}
}

func TestLiveEndpointsDisabled(t *testing.T) {
	mux := newMux(New(&stubRouter{}, nil, 0))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/live/rollover", strings.NewReader(`{"semester":"Fall 2025"}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRouteOverRPC(t *testing.T) {
	h := New(&stubRouter{res: hitResult()}, nil, 0)
	s := rpc.NewServer(time.Second)
	h.RegisterRPC(s)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go s.Serve(ln)
	defer s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := rpc.Dial(ctx, ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var resp proto.RouteResponse
	if err := c.Call(ctx, proto.MethodRoute, &proto.RouteRequest{Query: "EECS 700 seats"}, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Provenance != "fast_path+live_lookup" || len(resp.Documents) != 1 {
		t.Errorf("resp = %+v", resp)
	}

	err = c.Call(ctx, proto.MethodRoute, &proto.RouteRequest{Query: ""}, &resp)
	if err == nil || !strings.Contains(err.Error(), "required") {
		t.Errorf("err = %v", err)
	}

	var health proto.HealthCheckResponse
	if err := c.Call(ctx, proto.MethodHealth, nil, &health); err != nil || health.Status != "SERVING" {
		t.Errorf("health = %+v, %v", health, err)
	}
}

func TestWriteErrorUsesAppErrorMessage(t *testing.T) {
	h := New(&stubRouter{}, nil, 0)
	rec := httptest.NewRecorder()
	h.writeError(rec, errors.New("boom"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}
