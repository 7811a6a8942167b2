package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backupPayload struct {
	Path string `json:"path"`
}

func TestMemoryQueueRunsJob(t *testing.T) {
	got := make(chan string, 1)
	job := JobFunc{JobName: "backup", JobType: "users_backup", Fn: func(_ context.Context, raw json.RawMessage) error {
		p, err := ParsePayload[backupPayload](raw)
		if err != nil {
			return err
		}
		got <- p.Path
		return nil
	}}
	q := NewMemoryQueue(nil, Config{}, job)
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), "users_backup", backupPayload{Path: "users.db"}))
	select {
	case p := <-got:
		assert.Equal(t, "users.db", p)
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
}

func TestMemoryQueueRetriesThenDeadLetters(t *testing.T) {
	var calls int32
	job := JobFunc{JobName: "flaky", JobType: "flaky", Fn: func(context.Context, json.RawMessage) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("s3 unavailable")
	}}
	q := NewMemoryQueue(nil, Config{RetryLimit: 2, RetryDelay: time.Millisecond}, job)
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), "flaky", struct{}{}))
	require.Eventually(t, func() bool { return len(q.DeadLetters()) == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	dead := q.DeadLetters()[0]
	assert.Equal(t, 2, dead.Attempts)
	assert.Equal(t, "s3 unavailable", dead.LastError)
}

func TestMemoryQueueRejectsUnknownType(t *testing.T) {
	q := NewMemoryQueue(nil, Config{})
	assert.ErrorIs(t, q.Enqueue(context.Background(), "x", nil), ErrNotRunning)

	require.NoError(t, q.Start())
	defer q.Stop(context.Background())
	assert.ErrorIs(t, q.Enqueue(context.Background(), "x", nil), ErrNoJob)
}
