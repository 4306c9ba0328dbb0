package debounce

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

const DefaultDelay = 10 * time.Millisecond

type Option func(*options)

type options struct {
	clock clock.WithDelayedExecution
}

// WithClock подменяет источник таймеров (в тестах FakeClock).
func WithClock(c clock.WithDelayedExecution) Option {
	return func(o *options) { o.clock = c }
}

// Debouncer схлопывает серию вызовов в один отложенный, с аргументом последнего вызова.
type Debouncer[T any] struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func(T)
	clock clock.WithDelayedExecution

	timer   clock.Timer
	gen     uint64
	arg     T
	pending bool
}

func New[T any](delay time.Duration, fn func(T), opts ...Option) *Debouncer[T] {
	o := options{clock: clock.RealClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	if delay <= 0 {
		delay = DefaultDelay
	}

	return &Debouncer[T]{
		delay: delay,
		fn:    fn,
		clock: o.clock,
	}
}

func (d *Debouncer[T]) Delay() time.Duration { return d.delay }

// Invoke запоминает аргумент и перезапускает таймер.
func (d *Debouncer[T]) Invoke(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.arg = arg
	d.pending = true
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop отменяет отложенный вызов, если он еще не случился.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = false
	var zero T
	d.arg = zero
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// таймер уже заменен новым Invoke/Stop, но Stop не успел
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	arg := d.arg
	var zero T
	d.arg = zero
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn(arg)
}
