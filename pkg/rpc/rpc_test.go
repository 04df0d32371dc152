package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/logger"
)

type echoParams struct {
	Text string `json:"text"`
}

func startServer(t *testing.T, timeout time.Duration) (*Server, string) {
	t.Helper()
	s := NewServer(timeout)
	s.Register("Echo.Upper", func(ctx context.Context, params json.RawMessage) (any, error) {
		var p echoParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		return map[string]string{"text": strings.ToUpper(p.Text), "request_id": logger.RequestID(ctx)}, nil
	})
	s.Register("Echo.Fail", func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("nope")
	})
	s.Register("Echo.Slow", func(ctx context.Context, _ json.RawMessage) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go s.Serve(ln)
	t.Cleanup(s.Stop)
	return s, ln.Addr().String()
}

func TestCallRoundTrip(t *testing.T) {
	s, addr := startServer(t, time.Second)
	if s.MethodCount() != 3 {
		t.Errorf("methods = %d", s.MethodCount())
	}
	ctx := context.Background()
	c, err := Dial(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	for i := 0; i < 2; i++ {
		var out map[string]string
		if err := c.Call(ctx, "Echo.Upper", echoParams{Text: "eecs 700"}, &out); err != nil {
			t.Fatal(err)
		}
		if out["text"] != "EECS 700" || !strings.HasPrefix(out["request_id"], "rpc-") {
			t.Errorf("out = %v", out)
		}
	}

	if err := c.Call(ctx, "Echo.Fail", nil, nil); err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("err = %v", err)
	}
	if err := c.Call(ctx, "Echo.Missing", nil, nil); err == nil || !strings.Contains(err.Error(), "unknown method") {
		t.Errorf("err = %v", err)
	}
}

func TestHandlerTimeout(t *testing.T) {
	_, addr := startServer(t, 20*time.Millisecond)
	c, err := Dial(context.Background(), addr)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	err = c.Call(context.Background(), "Echo.Slow", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "deadline exceeded") {
		t.Errorf("err = %v", err)
	}
}
