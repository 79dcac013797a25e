// Package carousel rotates an index over a fixed number of slides on a fixed
// period. Manual selection jumps immediately and leaves the tick schedule
// alone.
package carousel

import (
	"context"
	"errors"
	"sync"
	"time"
)

const DefaultPeriod = 6 * time.Second

var (
	ErrAlreadyStarted = errors.New("carousel: already started")
	ErrOutOfRange     = errors.New("carousel: index out of range")
)

// Ticker is the subset of *time.Ticker the timer needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

func newStdTicker(d time.Duration) Ticker { return stdTicker{time.NewTicker(d)} }

type Option func(*Timer)

// WithTicker replaces the ticker factory (tests).
func WithTicker(f func(time.Duration) Ticker) Option {
	return func(t *Timer) { t.newTicker = f }
}

// OnChange registers fn to be called with the new index after every tick and
// every Select. Calls are serialized in the order the index changed, so the
// last value fn saw is the current index. Tick callbacks run on the timer
// goroutine; fn must not call Select.
func OnChange(fn func(int)) Option {
	return func(t *Timer) { t.onChange = fn }
}

type Timer struct {
	count     int
	period    time.Duration
	newTicker func(time.Duration) Ticker
	onChange  func(int)

	// emit orders index changes together with their notifications; mu guards
	// the fields below and is never held while fn runs.
	emit    sync.Mutex
	mu      sync.Mutex
	index   int
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(count int, period time.Duration, opts ...Option) *Timer {
	if period <= 0 {
		period = DefaultPeriod
	}
	t := &Timer{count: count, period: period, newTicker: newStdTicker}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start launches the tick loop. It runs until ctx is done or Stop is called.
func (t *Timer) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done != nil {
		return ErrAlreadyStarted
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	tk := t.newTicker(t.period)
	go t.loop(ctx, tk, t.done)
	return nil
}

func (t *Timer) loop(ctx context.Context, tk Ticker, done chan struct{}) {
	defer close(done)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C():
			t.advance()
		}
	}
}

func (t *Timer) advance() {
	t.emit.Lock()
	defer t.emit.Unlock()
	t.mu.Lock()
	if t.stopped || t.count == 0 {
		t.mu.Unlock()
		return
	}
	t.index = (t.index + 1) % t.count
	idx := t.index
	t.mu.Unlock()
	t.notify(idx)
}

// Select sets the index now. The next tick still arrives on the original
// schedule and advances from the selected slide.
func (t *Timer) Select(i int) error {
	t.emit.Lock()
	defer t.emit.Unlock()
	t.mu.Lock()
	if i < 0 || i >= t.count {
		t.mu.Unlock()
		return ErrOutOfRange
	}
	t.index = i
	t.mu.Unlock()
	t.notify(i)
	return nil
}

func (t *Timer) Index() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index
}

func (t *Timer) Count() int { return t.count }

// Stop halts the tick loop and waits for it to exit. No tick mutates the
// index once Stop returns. Safe to call more than once, or before Start.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.stopped = true
	cancel, done := t.cancel, t.done
	t.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Timer) notify(i int) {
	if t.onChange != nil {
		t.onChange(i)
	}
}
