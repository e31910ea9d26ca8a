package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the TimeController paces frames.
type Mode int

const (
	// RealTime emits one frame per Period of wall-clock time.
	RealTime Mode = iota
	// Accelerated emits frames as fast as listeners return while still
	// stepping simulation time by Step.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// Frame is one tick of the render loop.
type Frame struct {
	Index uint64
	Time  time.Time
}

// Listener is invoked once per frame on the Run goroutine. A non-nil error
// stops the run.
type Listener func(ctx context.Context, f Frame) error

// TimeController drives simulation time frame by frame and notifies
// registered listeners in registration order.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	// Step is the simulation time advanced per frame.
	Step time.Duration
	// Period is the wall-clock frame interval in RealTime mode.
	Period time.Duration
	Mode   Mode

	currentTime time.Time
	listeners   []Listener
}

// NewTimeController constructs a controller.
func NewTimeController(start time.Time, step, period time.Duration, mode Mode) *TimeController {
	if mode == RealTime && period <= 0 {
		mode = Accelerated
	}
	return &TimeController{
		StartTime:   start,
		Step:        step,
		Period:      period,
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the current simulation time.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime moves the simulation clock. The next frame steps from t.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// AddListener registers a callback invoked on every frame.
func (tc *TimeController) AddListener(fn Listener) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Run emits frames in a separate goroutine. Frame 0 carries the current
// time; each later frame advances by Step. A frames value of zero or less
// runs until ctx is cancelled. The returned channel yields the error that
// ended the run (nil when all frames completed) and is then closed.
func (tc *TimeController) Run(ctx context.Context, frames int) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- tc.run(ctx, frames)
	}()
	return done
}

func (tc *TimeController) run(ctx context.Context, frames int) error {
	tc.mu.RLock()
	listeners := append([]Listener(nil), tc.listeners...)
	tc.mu.RUnlock()

	var tick <-chan time.Time
	if tc.Mode == RealTime {
		ticker := time.NewTicker(tc.Period)
		defer ticker.Stop()
		tick = ticker.C
	}

	for i := uint64(0); frames <= 0 || i < uint64(frames); i++ {
		if i > 0 {
			if tick != nil {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-tick:
				}
			}
			tc.mu.Lock()
			tc.currentTime = tc.currentTime.Add(tc.Step)
			tc.mu.Unlock()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		f := Frame{Index: i, Time: tc.Now()}
		for _, fn := range listeners {
			if err := fn(ctx, f); err != nil {
				return err
			}
		}
	}
	return nil
}
