package raffle

import (
	"context"
	mrand "math/rand/v2"
	"time"
)

// animator emits a randomly chosen name at a fixed cadence until canceled.
// It works on its own copy of the pool and never touches engine state.
type animator struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startAnimator(interval time.Duration, pool []string, emit func(string)) *animator {
	ctx, cancel := context.WithCancel(context.Background())
	a := &animator{cancel: cancel, done: make(chan struct{})}

	names := copyStrings(pool)
	go func() {
		defer close(a.done)
		if len(names) == 0 {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// 仅用于展示, 不消耗注入的随机源
				name := names[mrand.IntN(len(names))]
				if ctx.Err() != nil {
					return
				}
				emit(name)
			}
		}
	}()

	return a
}

// stop cancels the animation; a frame already being emitted still completes
func (a *animator) stop() {
	if a != nil {
		a.cancel()
	}
}

// wait blocks until the animation goroutine has exited
func (a *animator) wait() {
	if a != nil {
		<-a.done
	}
}
