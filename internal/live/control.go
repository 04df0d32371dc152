package live

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/kafka"
)

// Control actions accepted on the live-cache control topic.
const (
	ActionRollover   = "rollover"
	ActionInvalidate = "invalidate"
)

// ControlMessage asks every replica to change its live cache.
type ControlMessage struct {
	Action   string `json:"action"`
	Semester string `json:"semester,omitempty"`
	Course   string `json:"course,omitempty"`
}

// HandleControl applies one control message. It matches kafka.MessageHandler.
// Malformed messages are logged and acknowledged so they do not block the
// partition.
func (c *Client) HandleControl(ctx context.Context, _ []byte, value []byte) error {
	msg, err := kafka.DecodeJSON[ControlMessage](value)
	if err != nil {
		c.logger.Warn("ignoring malformed control message", "error", err)
		return nil
	}
	switch msg.Action {
	case ActionRollover:
		if NormalizeSemester(msg.Semester) == c.Semester() {
			return nil
		}
		_, err = c.Rollover(ctx, msg.Semester)
	case ActionInvalidate:
		err = c.Invalidate(ctx, msg.Course)
	default:
		err = fmt.Errorf("%w: unknown control action %q", apperrors.ErrInvalidInput, msg.Action)
	}
	if errors.Is(err, apperrors.ErrInvalidInput) {
		c.logger.Warn("ignoring invalid control message", "action", msg.Action, "error", err)
		return nil
	}
	return err
}
