package sentiment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	results []func() (float64, error)
	calls   int
}

func (s *scriptedSource) Fetch(context.Context) (float64, error) {
	if s.calls >= len(s.results) {
		return 0, errors.New("no more scripted results")
	}
	out := s.results[s.calls]
	s.calls++
	return out()
}

func ok(v float64) func() (float64, error) {
	return func() (float64, error) { return v, nil }
}

func fail(msg string) func() (float64, error) {
	return func() (float64, error) { return 0, errors.New(msg) }
}

func TestCacheDefaultsToNeutral(t *testing.T) {
	c := NewCache(&scriptedSource{}, time.Minute)
	score := c.Get()
	assert.Zero(t, score.Value)
	assert.True(t, score.UpdatedAt.IsZero())
}

func TestCacheKeepsStaleValueOnFailure(t *testing.T) {
	src := &scriptedSource{results: []func() (float64, error){ok(0.4), fail("feed down")}}
	c := NewCache(src, time.Minute)
	ctx := context.Background()

	c.refresh(ctx)
	first := c.Get()
	assert.Equal(t, 0.4, first.Value)
	assert.False(t, first.UpdatedAt.IsZero())

	c.refresh(ctx)
	second := c.Get()
	assert.Equal(t, first, second, "failed fetch must not change the cached score")
}

func TestCacheOverwritesOnSuccess(t *testing.T) {
	src := &scriptedSource{results: []func() (float64, error){ok(0.4), ok(-0.2)}}
	c := NewCache(src, time.Minute)

	c.refresh(context.Background())
	c.refresh(context.Background())
	assert.Equal(t, -0.2, c.Get().Value)
}

func TestCacheRunStopsOnCancel(t *testing.T) {
	src := &scriptedSource{results: []func() (float64, error){ok(0.1)}}
	c := NewCache(src, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		return c.Get().Value == 0.1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
