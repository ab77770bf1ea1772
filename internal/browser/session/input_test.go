// internal/browser/session/input_test.go
package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/wanderer/api/schemas"
	"github.com/xkilldash9x/wanderer/internal/browser/humanoid"
)

type recordingExecutor struct {
	mu       sync.Mutex
	events   []schemas.MouseEventData
	slept    []time.Duration
	failType schemas.MouseEventType
}

func (r *recordingExecutor) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slept = append(r.slept, d)
	return nil
}

func (r *recordingExecutor) DispatchMouseEvent(_ context.Context, data schemas.MouseEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if data.Type == r.failType {
		return errors.New("dispatch failed")
	}
	r.events = append(r.events, data)
	return nil
}

func TestDirectInput_ClickAt(t *testing.T) {
	exec := &recordingExecutor{}
	in := newDirectInput(exec, humanoid.Vector2D{X: 5, Y: 5})

	require.NoError(t, in.ClickAt(context.Background(), humanoid.Vector2D{X: 40, Y: 60}))

	require.Len(t, exec.events, 3)
	assert.Equal(t, schemas.MouseMove, exec.events[0].Type)
	assert.Equal(t, schemas.MousePress, exec.events[1].Type)
	assert.Equal(t, int64(1), exec.events[1].Buttons)
	assert.Equal(t, schemas.MouseRelease, exec.events[2].Type)
	assert.Equal(t, int64(0), exec.events[2].Buttons)
	for _, ev := range exec.events {
		assert.Equal(t, 40.0, ev.X)
		assert.Equal(t, 60.0, ev.Y)
	}
	assert.Equal(t, humanoid.Vector2D{X: 40, Y: 60}, in.Position())
}

func TestDirectInput_ClickElementUsesCenter(t *testing.T) {
	exec := &recordingExecutor{}
	in := newDirectInput(exec, humanoid.Vector2D{})

	geo := &schemas.ElementGeometry{Vertices: []float64{10, 20, 110, 20, 110, 40, 10, 40}, Width: 100, Height: 20}
	require.NoError(t, in.ClickElement(context.Background(), geo))
	assert.Equal(t, 60.0, exec.events[1].X)
	assert.Equal(t, 30.0, exec.events[1].Y)

	assert.Error(t, in.ClickElement(context.Background(), &schemas.ElementGeometry{}))
	assert.Error(t, in.ClickElement(context.Background(), nil))
}

func TestDirectInput_MoveFailureKeepsPosition(t *testing.T) {
	exec := &recordingExecutor{failType: schemas.MouseMove}
	in := newDirectInput(exec, humanoid.Vector2D{X: 1, Y: 2})

	assert.Error(t, in.ClickAt(context.Background(), humanoid.Vector2D{X: 9, Y: 9}))
	assert.Equal(t, humanoid.Vector2D{X: 1, Y: 2}, in.Position())
	assert.Empty(t, exec.events)
}

func TestDirectInput_ScrollAndIdle(t *testing.T) {
	exec := &recordingExecutor{}
	in := newDirectInput(exec, humanoid.Vector2D{X: 300, Y: 200})

	require.NoError(t, in.Scroll(context.Background(), -250))
	require.Len(t, exec.events, 1)
	assert.Equal(t, schemas.MouseWheel, exec.events[0].Type)
	assert.Equal(t, -250.0, exec.events[0].DeltaY)
	assert.Equal(t, 300.0, exec.events[0].X)

	require.NoError(t, in.Idle(context.Background(), 2*time.Second))
	assert.Equal(t, []time.Duration{2 * time.Second}, exec.slept)
}
