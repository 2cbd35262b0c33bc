package core

import (
	"sync"
	"time"
)

// DefaultCountdownSeconds matches the pre-playback countdown every client
// shows before the movie starts.
const DefaultCountdownSeconds = 5

// countdown ticks once per second and can be cancelled mid-flight, in
// which case done never fires.
type countdown struct {
	mu     sync.Mutex
	stop   chan struct{}
	active bool
}

func startCountdown(seconds int, interval time.Duration, tick func(remaining int), done func()) *countdown {
	c := &countdown{stop: make(chan struct{}), active: true}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		remaining := seconds
		for remaining > 0 {
			select {
			case <-c.stop:
				return
			case <-t.C:
				remaining--
				if remaining > 0 && tick != nil {
					tick(remaining)
				}
			}
		}
		c.mu.Lock()
		finished := c.active
		c.active = false
		c.mu.Unlock()
		if finished {
			done()
		}
	}()
	return c
}

func (c *countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.active = false
	close(c.stop)
}
