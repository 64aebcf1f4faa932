package checker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursescout/internal/models"
	"coursescout/internal/pipeline"
)

type countingRunner struct {
	runs    int32
	running int32
	overlap int32
	err     error
}

func (r *countingRunner) Run(ctx context.Context) (pipeline.CollectStats, models.Summary, error) {
	if atomic.AddInt32(&r.running, 1) > 1 {
		atomic.StoreInt32(&r.overlap, 1)
	}
	defer atomic.AddInt32(&r.running, -1)
	n := atomic.AddInt32(&r.runs, 1)
	time.Sleep(2 * time.Millisecond)
	return pipeline.CollectStats{Fetched: int(n)}, models.Summary{Total: 1, Valid: 1}, r.err
}

func TestChecker_RunsOnStartAndOnTick(t *testing.T) {
	r := &countingRunner{}
	c := New(r, 10*time.Millisecond, nil)
	c.Start()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&r.runs) >= 3 }, 2*time.Second, 5*time.Millisecond)
	c.Stop()

	assert.Equal(t, int32(0), atomic.LoadInt32(&r.overlap))

	last := c.LastRun()
	require.NotNil(t, last)
	_, err := uuid.Parse(last.ID)
	assert.NoError(t, err)
	assert.Empty(t, last.Error)
	assert.Equal(t, 1, last.Summary.Valid)
	assert.False(t, last.FinishedAt.Before(last.StartedAt))
}

func TestChecker_InitialRunBeforeFirstTick(t *testing.T) {
	r := &countingRunner{}
	c := New(r, time.Hour, nil)
	c.Start()

	require.Eventually(t, func() bool { return c.LastRun() != nil }, time.Second, 5*time.Millisecond)
	c.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&r.runs))
}

func TestChecker_RecordsFailure(t *testing.T) {
	r := &countingRunner{err: errors.New("database is locked")}
	c := New(r, time.Hour, nil)
	assert.Nil(t, c.LastRun())

	c.Start()
	require.Eventually(t, func() bool { return c.LastRun() != nil }, time.Second, 5*time.Millisecond)
	c.Stop()

	assert.Equal(t, "database is locked", c.LastRun().Error)
}
