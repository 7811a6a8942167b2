package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerNextRunInZone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	s := NewScheduler(loc, time.Second, nil)

	require.NoError(t, s.Add("quote-refresh", "31 9 * * 1-5", func(context.Context) error { return nil }))
	assert.Error(t, s.Add("quote-refresh", "31 9 * * 1-5", func(context.Context) error { return nil }))
	assert.Error(t, s.Add("broken", "every other tuesday", func(context.Context) error { return nil }))

	s.Start()
	defer func() { _ = s.Stop(context.Background()) }()

	next, ok := s.Next("quote-refresh")
	require.True(t, ok)
	next = next.In(loc)
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 31, next.Minute())
	assert.NotEqual(t, time.Saturday, next.Weekday())
	assert.NotEqual(t, time.Sunday, next.Weekday())

	_, ok = s.Next("missing")
	assert.False(t, ok)
}
