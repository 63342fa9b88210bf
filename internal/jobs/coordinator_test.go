package jobs_test

import (
	"context"
	"errors"
	"testing"

	"eval-backend/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExclusiveRejectsConcurrentOperation(t *testing.T) {
	c := jobs.NewCoordinator()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- c.Exclusive(context.Background(), "evaluate", func(ctx context.Context, op jobs.Operation) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started

	active, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, "evaluate", active.Name)

	called := false
	err := c.Exclusive(context.Background(), "upload", func(ctx context.Context, op jobs.Operation) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, jobs.ErrBusy)
	assert.False(t, called)

	close(release)
	require.NoError(t, <-done)

	_, ok = c.Active()
	assert.False(t, ok)

	err = c.Exclusive(context.Background(), "upload", func(ctx context.Context, op jobs.Operation) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestExclusiveReturnsOperationError(t *testing.T) {
	c := jobs.NewCoordinator()
	expected := errors.New("boom")

	err := c.Exclusive(context.Background(), "evaluate", func(ctx context.Context, op jobs.Operation) error {
		return expected
	})
	assert.ErrorIs(t, err, expected)

	// the lock is released after a failure
	err = c.Exclusive(context.Background(), "evaluate", func(ctx context.Context, op jobs.Operation) error {
		return nil
	})
	assert.NoError(t, err)
}
