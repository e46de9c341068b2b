// Package debounce delays search execution until text input settles.
package debounce

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultDelay is used when New is given a non-positive delay.
const DefaultDelay = 400 * time.Millisecond

type timer interface {
	Stop() bool
}

// Search holds at most one pending countdown. Each change restarts it;
// when it elapses the search callback runs with the latest text. Blank
// text skips the countdown and runs the clear callback right away.
type Search struct {
	delay    time.Duration
	onSearch func(ctx context.Context, text string)
	onClear  func(ctx context.Context)

	afterFunc func(time.Duration, func()) timer

	mu    sync.Mutex
	timer timer
	// gen is bumped by every change so that a timer which fired while a
	// newer change was being registered does nothing.
	gen uint64
}

// New creates a Search debouncer.
func New(delay time.Duration, onSearch func(ctx context.Context, text string), onClear func(ctx context.Context)) *Search {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Search{
		delay:    delay,
		onSearch: onSearch,
		onClear:  onClear,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
}

// Changed registers new input text. The search callback later runs with
// ctx unless ctx is done by then.
func (s *Search) Changed(ctx context.Context, text string) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.stopLocked()

	if strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		s.onClear(ctx)
		return
	}

	s.timer = s.afterFunc(s.delay, func() { s.fire(ctx, gen, text) })
	s.mu.Unlock()
}

// Cancel drops the pending countdown, if any.
func (s *Search) Cancel() {
	s.mu.Lock()
	s.gen++
	s.stopLocked()
	s.mu.Unlock()
}

// Pending reports whether a countdown is running.
func (s *Search) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *Search) fire(ctx context.Context, gen uint64, text string) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	s.onSearch(ctx, text)
}

func (s *Search) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
