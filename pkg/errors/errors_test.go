package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestUpstreamClassification(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    error
		notWant error
	}{
		{"deadline", context.DeadlineExceeded, ErrUpstreamTimeout, ErrUpstreamUnavailable},
		{"wrapped deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), ErrUpstreamTimeout, ErrUpstreamUnavailable},
		{"refused", errors.New("connection refused"), ErrUpstreamUnavailable, ErrUpstreamTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Upstream("live", tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("Upstream(%v) = %v, want %v in chain", tt.err, got, tt.want)
			}
			if errors.Is(got, tt.notWant) {
				t.Errorf("Upstream(%v) unexpectedly matched %v", tt.err, tt.notWant)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("original error lost from chain")
			}
			if !IsRetrievable(got) {
				t.Errorf("IsRetrievable = false")
			}
		})
	}
	if Upstream("live", nil) != nil {
		t.Error("Upstream(nil) should be nil")
	}
}

func TestHTTPStatusCode(t *testing.T) {
	if got := HTTPStatusCode(New(ErrInvalidInput, http.StatusTeapot, "x")); got != http.StatusTeapot {
		t.Errorf("AppError status = %d", got)
	}
	if got := HTTPStatusCode(fmt.Errorf("q: %w", ErrInvalidInput)); got != http.StatusBadRequest {
		t.Errorf("invalid input status = %d", got)
	}
	if got := HTTPStatusCode(Upstream("x", context.DeadlineExceeded)); got != http.StatusGatewayTimeout {
		t.Errorf("timeout status = %d", got)
	}
	if got := HTTPStatusCode(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("default status = %d", got)
	}
}
