package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mardukros/mardukros-sub000/coordinator"
	"github.com/mardukros/mardukros-sub000/task"
	"github.com/mardukros/mardukros-sub000/wireproto"
)

// coordinatorDispatcher is deliberation.Dispatcher's in-process
// implementation: tasks targeting the "ai" subsystem are answered
// directly by the AI Coordinator; every other target is acknowledged
// without work, since the spec treats the WebSocket transport and any
// other subsystem worker as external collaborators reached only
// through wireproto's envelopes (spec §1 Non-goals, §6). A real
// deployment swaps this for a wireproto.Writer/Reader pair over an
// actual duplex connection; nothing in deliberation depends on which
// one is plugged in.
type coordinatorDispatcher struct {
	coordinator *coordinator.Coordinator
	logger      *slog.Logger
}

func newCoordinatorDispatcher(c *coordinator.Coordinator, logger *slog.Logger) *coordinatorDispatcher {
	return &coordinatorDispatcher{coordinator: c, logger: logger}
}

// Dispatch implements deliberation.Dispatcher.
func (d *coordinatorDispatcher) Dispatch(ctx context.Context, msg wireproto.Task) (wireproto.Response, error) {
	target := msg.Target
	if target == "" {
		target = string(task.CategoryAI)
	}

	if target != string(task.CategoryAI) {
		d.logger.Debug("dispatch acknowledged without work", "target", target, "task_id", msg.TaskID)
		return wireproto.NewResponse(target, msg.TaskID, nil), nil
	}

	result, err := d.coordinator.ProcessQuery(ctx, coordinator.Query{Text: msg.Query})
	if err != nil {
		return wireproto.Response{}, fmt.Errorf("dispatch task %d: %w", msg.TaskID, err)
	}
	return wireproto.NewResponse(target, msg.TaskID, result.Response.Content), nil
}
