// Package handler exposes the router over HTTP and the internal JSON RPC
// transport, plus the operator endpoints for the live cache.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/live"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/retriever"
	apperrors "github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/proto"
)

// Router is the routing pipeline.
type Router interface {
	Route(ctx context.Context, raw string) *retriever.Result
}

// LiveAdmin is the operator surface of the live client.
type LiveAdmin interface {
	Stats() live.Stats
	Rollover(ctx context.Context, semester string) (int64, error)
}

type Handler struct {
	router      Router
	live        LiveAdmin
	maxQueryLen int
	logger      *slog.Logger
}

// New builds the handler. live may be nil when live lookups are disabled.
func New(router Router, live LiveAdmin, maxQueryLen int) *Handler {
	if maxQueryLen <= 0 {
		maxQueryLen = 10000
	}
	return &Handler{
		router:      router,
		live:        live,
		maxQueryLen: maxQueryLen,
		logger:      slog.Default().With("component", "route-handler"),
	}
}

// Register mounts the handler's routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/route", h.Route)
	mux.HandleFunc("GET /api/v1/live/stats", h.LiveStats)
	mux.HandleFunc("POST /api/v1/live/rollover", h.LiveRollover)
}

func (h *Handler) Route(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("q")
	if err := h.validate(raw); err != nil {
		h.writeError(w, err)
		return
	}
	res := h.router.Route(r.Context(), raw)
	h.writeJSON(w, http.StatusOK, ToResponse(raw, res))
}

func (h *Handler) LiveStats(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.live.Stats())
}

type rolloverRequest struct {
	Semester string `json:"semester"`
}

func (h *Handler) LiveRollover(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		h.writeError(w, apperrors.New(apperrors.ErrUpstreamUnavailable, http.StatusServiceUnavailable, "live lookups are disabled"))
		return
	}
	var req rolloverRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil || strings.TrimSpace(req.Semester) == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "body must be {\"semester\": \"<name>\"}"))
		return
	}
	deleted, err := h.live.Rollover(r.Context(), req.Semester)
	if err != nil {
		logger.FromContext(r.Context()).Error("semester rollover failed", "semester", req.Semester, "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"semester":     h.live.Stats().Semester,
		"keys_deleted": deleted,
	})
}

func (h *Handler) validate(raw string) error {
	switch {
	case strings.TrimSpace(raw) == "":
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required")
	case len(raw) > h.maxQueryLen:
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "query longer than %d bytes", h.maxQueryLen)
	case !utf8.ValidString(raw):
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query must be valid UTF-8")
	}
	return nil
}

// ToResponse flattens a routing result into the wire shape shared by the
// HTTP and RPC surfaces.
func ToResponse(raw string, res *retriever.Result) *proto.RouteResponse {
	out := &proto.RouteResponse{
		Query:      raw,
		Intent:     string(res.Intent),
		Confidence: res.Confidence,
		Provenance: string(res.Provenance),
		LatencyMs:  float64(res.Latency.Microseconds()) / 1000,
		Stale:      res.Stale,
		Degraded:   res.Degraded,
		Reasons:    res.Reasons,
		Trace:      res.Trace,
		Documents:  make([]proto.Document, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		d := hit.Document
		out.Documents = append(out.Documents, proto.Document{
			ID:       d.ID,
			Domain:   string(d.Domain),
			Title:    d.Title,
			Text:     d.Text,
			Fields:   d.Fields,
			Keywords: d.Keywords,
			Score:    hit.Score,
			Source:   hit.Source,
		})
	}
	if res.Empty() {
		out.Message = apperrors.ErrEmptyResult.Error()
	}
	if p := res.Live; p != nil {
		out.Live = &proto.LiveData{
			Course:    p.Course,
			Semester:  p.Semester,
			Field:     string(p.Field),
			FetchedAt: p.FetchedAt,
			Stale:     p.Stale,
			OpenSeats: p.OpenSeats(),
			Summary:   p.Summary(),
		}
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": msg})
}
