package audit

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-audit/internal/application"
	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
)

type progressLog struct {
	mu     sync.Mutex
	values []int
}

func (p *progressLog) add(v int) {
	p.mu.Lock()
	p.values = append(p.values, v)
	p.mu.Unlock()
}

func (p *progressLog) get() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.values...)
}

func TestSimulator_RunToCompletion(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	sim := NewSimulator(fastSim, fixedGenerator{found: 2}, application.FixedClock{At: at})
	defer sim.Close()

	progress := &progressLog{}
	completed := make(chan *domain.AnalysisResult, 1)
	sim.OnProgress = progress.add
	sim.OnComplete = func(_ uint64, res *domain.AnalysisResult) { completed <- res }

	require.NoError(t, sim.Start(domain.AddressRequest("0xABC123")))
	assert.Equal(t, StateRunning, sim.Snapshot().State)

	var res *domain.AnalysisResult
	select {
	case res = <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("simulation did not complete")
	}

	assert.Equal(t, "0xABC123", res.Identifier)
	assert.Equal(t, at, res.CompletedAt)

	snap := sim.Snapshot()
	assert.Equal(t, StateComplete, snap.State)
	assert.Equal(t, 100, snap.Progress)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 2, snap.Result.VulnerabilitiesFound)

	values := progress.get()
	require.NotEmpty(t, values)
	assert.Equal(t, 0, values[0])
	assert.Equal(t, 100, values[len(values)-1])
	for i, v := range values[:len(values)-1] {
		assert.LessOrEqual(t, v, fastSim.Ceiling, "progress %d before completion", i)
		if i > 0 {
			assert.GreaterOrEqual(t, v, values[i-1])
		}
	}
}

func TestSimulator_StartOnlyFromIdle(t *testing.T) {
	sim := NewSimulator(fastSim, fixedGenerator{}, nil)
	defer sim.Close()

	require.NoError(t, sim.Start(domain.AddressRequest("0x1")))
	assert.ErrorIs(t, sim.Start(domain.AddressRequest("0x2")), domain.ErrNotIdle)

	require.Eventually(t, func() bool { return sim.Snapshot().State == StateComplete },
		2*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, sim.Start(domain.AddressRequest("0x2")), domain.ErrNotIdle)

	sim.Reset()
	assert.NoError(t, sim.Start(domain.AddressRequest("0x2")))
}

func TestSimulator_StartRejectsEmptyRequest(t *testing.T) {
	sim := NewSimulator(fastSim, fixedGenerator{}, nil)
	defer sim.Close()

	err := sim.Start(domain.AddressRequest(""))
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))

	snap := sim.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Result)
}

func TestSimulator_ResetCancelsRun(t *testing.T) {
	cfg := fastSim
	cfg.Duration = 200 * time.Millisecond
	sim := NewSimulator(cfg, fixedGenerator{}, nil)
	defer sim.Close()

	var completions int
	var mu sync.Mutex
	sim.OnComplete = func(uint64, *domain.AnalysisResult) {
		mu.Lock()
		completions++
		mu.Unlock()
	}

	require.NoError(t, sim.Start(domain.AddressRequest("0x1")))
	time.Sleep(20 * time.Millisecond)
	sim.Reset()

	snap := sim.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Zero(t, snap.Progress)
	assert.Nil(t, snap.Request)

	time.Sleep(cfg.Duration + 50*time.Millisecond)
	snap = sim.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Zero(t, snap.Progress)
	assert.Nil(t, snap.Result)

	mu.Lock()
	assert.Zero(t, completions)
	mu.Unlock()
}

func TestSimulator_CloseWaitsForRun(t *testing.T) {
	cfg := fastSim
	cfg.Duration = time.Second
	sim := NewSimulator(cfg, fixedGenerator{}, nil)

	require.NoError(t, sim.Start(domain.AddressRequest("0x1")))

	done := make(chan struct{})
	go func() {
		sim.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Close did not return")
	}
	assert.Equal(t, StateIdle, sim.Snapshot().State)
}

func TestSimulatorConfig_Defaults(t *testing.T) {
	cfg := SimulatorConfig{Ceiling: 150}.withDefaults()
	assert.Equal(t, DefaultSimulatorConfig(), cfg)
}
