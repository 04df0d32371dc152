// Package rpc is a small JSON-over-TCP request/response transport for
// internal callers that want the router without HTTP. Each connection
// carries newline-delimited JSON requests and responses; requests on one
// connection are served in order.
//
//	s := rpc.NewServer(2 * time.Second)
//	s.Register(proto.MethodRoute, func(ctx context.Context, params json.RawMessage) (any, error) { ... })
//	go s.ListenAndServe(":9100")
//
//	c, _ := rpc.Dial(ctx, "localhost:9100")
//	var resp proto.RouteResponse
//	err := c.Call(ctx, proto.MethodRoute, &proto.RouteRequest{Query: "EECS 700 seats"}, &resp)
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/logger"
)

// HandlerFunc serves one method.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Request is the wire format for an RPC request.
type Request struct {
	Method string          `json:"method"`
	ID     string          `json:"id"`
	Params json.RawMessage `json:"params"`
}

// Response is the wire format for an RPC response.
type Response struct {
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

type Server struct {
	handlers map[string]HandlerFunc
	timeout  time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// NewServer creates a server whose handlers run under timeout per call.
// A zero timeout leaves calls unbounded.
func NewServer(timeout time.Duration) *Server {
	return &Server{
		handlers: make(map[string]HandlerFunc),
		timeout:  timeout,
		logger:   slog.Default().With("component", "rpc-server"),
		conns:    make(map[net.Conn]struct{}),
		done:     make(chan struct{}),
	}
}

// Register adds a handler. Method names follow "Service.Method".
func (s *Server) Register(method string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
	s.logger.Debug("method registered", "method", method)
}

func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("rpc server listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept error", "error", err)
			continue
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)
	for {
		var req Request
		if err := decoder.Decode(&req); err != nil {
			return
		}
		resp := s.dispatch(req)
		if err := encoder.Encode(resp); err != nil {
			s.logger.Error("write error", "method", req.Method, "error", err)
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	resp := Response{ID: req.ID}

	s.mu.RLock()
	handler, ok := s.handlers[req.Method]
	s.mu.RUnlock()
	if !ok {
		resp.Error = fmt.Sprintf("unknown method: %s", req.Method)
		return resp
	}

	ctx := logger.WithRequestID(context.Background(), "rpc-"+req.ID)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	data, err := handler(ctx, req.Params)
	if err != nil {
		resp.Error = err.Error()
		s.logger.Warn("rpc failed", "method", req.Method, "error", err)
		return resp
	}
	raw, err := json.Marshal(data)
	if err != nil {
		resp.Error = fmt.Sprintf("encoding response: %v", err)
		return resp
	}
	resp.Data = raw
	s.logger.Debug("rpc served", "method", req.Method, "duration_ms", time.Since(start).Milliseconds())
	return resp
}

// MethodCount returns the number of registered methods.
func (s *Server) MethodCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}

// Stop closes the listener and open connections and waits for handlers to
// return.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
		s.wg.Wait()
		s.logger.Info("rpc server stopped")
	})
}
