package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

func blockUntilCancelled(started chan<- struct{}) func(ctx context.Context) (Result, error) {
	return func(ctx context.Context) (Result, error) {
		close(started)
		<-ctx.Done()
		return Result{}, ErrCancelled
	}
}

func TestRunnerNewTaskSupersedesOld(t *testing.T) {
	r := NewRunner(context.Background())
	key := Key{UserID: "u1", Source: tracker.SourceCanvas}

	started := make(chan struct{})
	first := r.Start(key, blockUntilCancelled(started))
	<-started

	second := r.Start(key, func(ctx context.Context) (Result, error) {
		return Result{Source: tracker.SourceCanvas, Count: 3}, nil
	})

	_, err := first.Wait()
	assert.ErrorIs(t, err, ErrCancelled)

	res, err := second.Wait()
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.False(t, r.Running(key))
}

func TestRunnerCancel(t *testing.T) {
	r := NewRunner(context.Background())
	key := Key{UserID: "u1", Source: tracker.SourceGoogle}

	assert.False(t, r.Cancel(key))

	started := make(chan struct{})
	task := r.Start(key, blockUntilCancelled(started))
	<-started
	assert.True(t, r.Running(key))
	assert.True(t, r.Cancel(key))

	_, err := task.Wait()
	assert.ErrorIs(t, err, ErrCancelled)
	<-task.Done()
}

func TestRunnerKeysAreIndependent(t *testing.T) {
	r := NewRunner(context.Background())
	started := make(chan struct{})
	canvas := r.Start(Key{UserID: "u1", Source: tracker.SourceCanvas}, blockUntilCancelled(started))
	<-started

	google := r.Start(Key{UserID: "u1", Source: tracker.SourceGoogle}, func(ctx context.Context) (Result, error) {
		return Result{Count: 1}, nil
	})
	res, err := google.Wait()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.True(t, r.Running(canvas.Key()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
	_, err = canvas.Wait()
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestWaitContext(t *testing.T) {
	r := NewRunner(context.Background())
	started := make(chan struct{})
	task := r.Start(Key{UserID: "u2", Source: tracker.SourceCanvas}, blockUntilCancelled(started))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := task.WaitContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	r.Cancel(task.Key())
	_, err = task.Wait()
	assert.ErrorIs(t, err, ErrCancelled)
}
