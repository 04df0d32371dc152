package handler

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/rpc"
)

// RegisterRPC serves Router.Route and Router.Health on s.
func (h *Handler) RegisterRPC(s *rpc.Server) {
	s.Register(proto.MethodRoute, h.routeRPC)
	s.Register(proto.MethodHealth, func(context.Context, json.RawMessage) (any, error) {
		return &proto.HealthCheckResponse{Status: "SERVING"}, nil
	})
}

func (h *Handler) routeRPC(ctx context.Context, params json.RawMessage) (any, error) {
	var req proto.RouteRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("%w: decoding route request: %w", apperrors.ErrInvalidInput, err)
	}
	if err := h.validate(req.Query); err != nil {
		return nil, err
	}
	return ToResponse(req.Query, h.router.Route(ctx, req.Query)), nil
}
