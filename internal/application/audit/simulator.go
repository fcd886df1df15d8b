package audit

import (
	"context"
	"sync"
	"time"

	"github.com/bryanwahyu/automaton-audit/internal/application"
	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
)

// State enum
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateComplete State = "complete"
)

// SimulatorConfig controls the fake progress animation.
type SimulatorConfig struct {
	Duration time.Duration // total run time before the result is published
	Interval time.Duration // progress tick cadence
	Step     int           // progress added per tick
	Ceiling  int           // progress cap while running
}

// DefaultSimulatorConfig ticks every 200ms up to 90% and completes after 2s.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Duration: 2 * time.Second,
		Interval: 200 * time.Millisecond,
		Step:     10,
		Ceiling:  90,
	}
}

func (c SimulatorConfig) withDefaults() SimulatorConfig {
	d := DefaultSimulatorConfig()
	if c.Duration <= 0 {
		c.Duration = d.Duration
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.Step <= 0 {
		c.Step = d.Step
	}
	if c.Ceiling <= 0 || c.Ceiling >= 100 {
		c.Ceiling = d.Ceiling
	}
	return c
}

// Snapshot is a consistent read of the simulator.
type Snapshot struct {
	Run      uint64
	State    State
	Progress int
	Request  *domain.AnalysisRequest
	Result   *domain.AnalysisResult
}

// Simulator drives the Idle -> Running -> Complete state machine. Each run
// owns a goroutine with its own cancel func; run numbers guard against a
// cancelled goroutine touching state that belongs to a newer run.
type Simulator struct {
	cfg   SimulatorConfig
	gen   domain.ResultGenerator
	clock application.Clock

	// OnProgress is called after every progress change, outside the lock.
	OnProgress func(progress int)
	// OnComplete is called once a run publishes its result, outside the lock.
	OnComplete func(run uint64, res *domain.AnalysisResult)

	mu       sync.Mutex
	state    State
	progress int
	req      *domain.AnalysisRequest
	result   *domain.AnalysisResult
	run      uint64
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSimulator(cfg SimulatorConfig, gen domain.ResultGenerator, clock application.Clock) *Simulator {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Simulator{
		cfg:   cfg.withDefaults(),
		gen:   gen,
		clock: clock,
		state: StateIdle,
	}
}

// Start begins a run. Only valid from Idle.
func (s *Simulator) Start(req domain.AnalysisRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return domain.ErrNotIdle
	}
	s.run++
	run := s.run
	s.state = StateRunning
	s.progress = 0
	s.result = nil
	r := req
	s.req = &r

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	s.emitProgress(0)
	go s.loop(ctx, run, req, done)
	return nil
}

// Reset stops any run and returns to Idle, discarding progress and result.
func (s *Simulator) Reset() {
	s.mu.Lock()
	s.stopLocked()
	s.state = StateIdle
	s.progress = 0
	s.req = nil
	s.result = nil
	s.mu.Unlock()
}

// Close resets the simulator and waits for the run goroutine to exit. Don't
// call it while holding a lock that OnProgress or OnComplete acquires.
func (s *Simulator) Close() {
	s.mu.Lock()
	done := s.done
	s.stopLocked()
	s.state = StateIdle
	s.progress = 0
	s.req = nil
	s.result = nil
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (s *Simulator) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Run: s.run, State: s.state, Progress: s.progress, Result: s.result.Clone()}
	if s.req != nil {
		r := *s.req
		snap.Request = &r
	}
	return snap
}

func (s *Simulator) stopLocked() {
	s.run++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.done = nil
}

func (s *Simulator) loop(ctx context.Context, run uint64, req domain.AnalysisRequest, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	timer := time.NewTimer(s.cfg.Duration)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(run)
		case <-timer.C:
			s.complete(run, req)
			return
		}
	}
}

func (s *Simulator) tick(run uint64) {
	s.mu.Lock()
	if s.run != run || s.state != StateRunning || s.progress >= s.cfg.Ceiling {
		s.mu.Unlock()
		return
	}
	s.progress = min(s.progress+s.cfg.Step, s.cfg.Ceiling)
	p := s.progress
	s.mu.Unlock()

	s.emitProgress(p)
}

func (s *Simulator) complete(run uint64, req domain.AnalysisRequest) {
	res := s.gen.Generate(req)
	res.CompletedAt = s.clock.Now()

	s.mu.Lock()
	if s.run != run || s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.progress = 100
	s.state = StateComplete
	s.result = res
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	s.emitProgress(100)
	if s.OnComplete != nil {
		s.OnComplete(run, res.Clone())
	}
}

func (s *Simulator) emitProgress(p int) {
	if s.OnProgress != nil {
		s.OnProgress(p)
	}
}
