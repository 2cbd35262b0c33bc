package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountdownTicksDownThenFires(t *testing.T) {
	var mu sync.Mutex
	var ticks []int
	doneCh := make(chan struct{})

	startCountdown(3, 5*time.Millisecond,
		func(remaining int) {
			mu.Lock()
			ticks = append(ticks, remaining)
			mu.Unlock()
		},
		func() { close(doneCh) })

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("countdown never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2, 1}, ticks)
}

func TestCountdownCancelPreventsDone(t *testing.T) {
	doneCh := make(chan struct{})
	cd := startCountdown(1000, 5*time.Millisecond, nil, func() { close(doneCh) })

	cd.Cancel()
	cd.Cancel()

	select {
	case <-doneCh:
		t.Fatal("done fired after cancel")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCountdownCancelAfterDoneIsNoop(t *testing.T) {
	doneCh := make(chan struct{})
	cd := startCountdown(1, time.Millisecond, nil, func() { close(doneCh) })

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("countdown never completed")
	}
	require.NotPanics(t, cd.Cancel)
}
