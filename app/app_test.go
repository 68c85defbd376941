package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mardukros/mardukros-sub000/coordinator"
	"github.com/mardukros/mardukros-sub000/llm"
	"github.com/mardukros/mardukros-sub000/memorycore"
	"github.com/mardukros/mardukros-sub000/wireproto"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	return []float64{float64(len(text)), 1}, nil
}

type fakeClient struct {
	response llm.Response
}

func (f *fakeClient) Call(_ context.Context, _ llm.Request) (llm.Response, error) {
	return f.response, nil
}

func newTestCoordinator(t *testing.T) *coordinator.Coordinator {
	t.Helper()
	events := memorycore.NewEventStore(memorycore.Options[memorycore.EventContent]{Capacity: 100})
	return coordinator.New(coordinator.Options{
		Embedder: fakeEmbedder{},
		Client:   &fakeClient{response: llm.Response{Content: "ack", Model: "test-model"}},
		Events:   events,
	})
}

func TestCoordinatorDispatcherRoutesAITarget(t *testing.T) {
	coord := newTestCoordinator(t)
	d := newCoordinatorDispatcher(coord, discardLogger())

	resp, err := d.Dispatch(context.Background(), wireproto.NewTask(1, "what is the plan", "ai", nil))

	require.NoError(t, err)
	assert.Equal(t, 1, resp.TaskID)
	assert.Equal(t, "ack", resp.Result)
}

func TestCoordinatorDispatcherAcknowledgesOtherTargetsWithoutWork(t *testing.T) {
	coord := newTestCoordinator(t)
	d := newCoordinatorDispatcher(coord, discardLogger())

	resp, err := d.Dispatch(context.Background(), wireproto.NewTask(2, "anything", "memory", nil))

	require.NoError(t, err)
	assert.Nil(t, resp.Result)
	assert.Equal(t, "memory", resp.Subsystem)
}

func TestNextTaskIDIsUniqueAndMonotonic(t *testing.T) {
	a := &App{}
	a.taskIDSeq.Store(1)

	first := a.nextTaskID()
	second := a.nextTaskID()

	assert.Less(t, first, second)
}
