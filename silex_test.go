package silex

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/BranchIntl/silex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError + 4,
	}))
}

func waitingLoop() core.WorkerLoop {
	return core.WorkerLoopFunc(func(w *core.Worker) (core.LoopResult, error) {
		select {
		case <-w.Signal().Done():
		case <-time.After(10 * time.Millisecond):
		}
		return core.Continue, nil
	})
}

func TestRun_ContextCancelled(t *testing.T) {
	engine := core.NewMultiEngine(waitingLoop(), core.WithPoolSize(3), core.WithLogger(testLogger()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, Run(ctx, engine))
	assert.Equal(t, core.StatusStopped, engine.Status())
	assert.False(t, engine.IsThreadAlive())
}

func TestRun_ReturnsWhenWorkersExit(t *testing.T) {
	loop := core.WorkerLoopFunc(func(w *core.Worker) (core.LoopResult, error) {
		return core.Exit, nil
	})
	engine := core.NewSingleEngine(loop, core.WithLogger(testLogger()))

	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), engine) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the worker exited")
	}
	assert.Equal(t, core.StatusStopped, engine.Status())
}

func TestRun_StartError(t *testing.T) {
	engine := core.NewSingleEngine(waitingLoop(), core.WithLogger(testLogger()))
	require.NoError(t, engine.Start())
	defer engine.Stop(true)

	assert.Error(t, Run(context.Background(), engine))
}

func TestWaitForShutdown_Context(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Nil(t, WaitForShutdown(ctx))
}
