package sim

import (
	"log/slog"
	"sync"
	"time"
)

// Loop drives the simulation from wall-clock time. Simulated time
// advances in fixed ticks through an accumulator, so variable frame
// timing never changes simulation behavior; a ticks-per-frame cap
// keeps a stalled process from spiraling into endless catch-up.
type Loop struct {
	sim *Simulation

	tickInterval time.Duration // Wall-clock duration of one tick at speed 1
	maxPerFrame  int

	mu      sync.Mutex
	speed   float64
	running bool
	stopped bool

	stopChan chan struct{}

	// OnTick, when set, is called after every processed tick. Used for
	// periodic autosave and reporting. Must not block.
	OnTick func(tick uint64)
}

// NewLoop creates a driver for the simulation. Speed starts at 1.
func NewLoop(s *Simulation) *Loop {
	return &Loop{
		sim:          s,
		tickInterval: time.Duration(s.cfg.Tick.Seconds * float64(time.Second)),
		maxPerFrame:  s.cfg.Tick.MaxTicksPerFrame,
		speed:        1,
		stopChan:     make(chan struct{}),
	}
}

// SetSpeed changes the simulation speed multiplier. Zero or negative
// pauses.
func (l *Loop) SetSpeed(speed float64) {
	l.mu.Lock()
	l.speed = speed
	l.mu.Unlock()
}

// Speed returns the current speed multiplier.
func (l *Loop) Speed() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.speed
}

// Stop halts Run. Idempotent; safe to call from any goroutine.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	close(l.stopChan)
}

// Run blocks, advancing the simulation until Stop is called. Only one
// Run may be active; concurrent calls return immediately.
func (l *Loop) Run() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		slog.Warn("simulation loop already running")
		return
	}
	l.running = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	slog.Info("simulation loop started",
		"tick_interval", l.tickInterval,
		"max_ticks_per_frame", l.maxPerFrame,
	)

	const frameInterval = 25 * time.Millisecond
	var accumulator time.Duration
	last := time.Now()

	for {
		select {
		case <-l.stopChan:
			slog.Info("simulation loop stopped", "tick", l.sim.Tick())
			return
		default:
		}

		now := time.Now()
		elapsed := now.Sub(last)
		last = now

		speed := l.Speed()
		if speed <= 0 {
			// Paused. Drop accumulated time so unpausing doesn't burst.
			accumulator = 0
			time.Sleep(100 * time.Millisecond)
			last = time.Now()
			continue
		}

		accumulator += time.Duration(float64(elapsed) * speed)

		ticks := 0
		for accumulator >= l.tickInterval && ticks < l.maxPerFrame {
			l.sim.Step()
			accumulator -= l.tickInterval
			ticks++
			if l.OnTick != nil {
				l.OnTick(l.sim.Tick())
			}
		}
		if ticks == l.maxPerFrame && accumulator >= l.tickInterval {
			// Can't catch up; discard the backlog rather than stall.
			slog.Debug("tick backlog dropped", "backlog", accumulator)
			accumulator = 0
		}

		time.Sleep(frameInterval)
	}
}
