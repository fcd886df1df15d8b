package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bryanwahyu/automaton-audit/internal/application"
	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
)

// View is the read model of a session handed to the HTTP layer.
type View struct {
	ID            string                 `json:"id"`
	State         State                  `json:"state"`
	Progress      int                    `json:"progress"`
	Loading       bool                   `json:"isLoading"`
	Exporting     bool                   `json:"isExporting"`
	Mode          domain.RequestKind     `json:"mode"`
	Address       string                 `json:"contractAddress"`
	FileName      string                 `json:"fileName"`
	Result        *domain.AnalysisResult `json:"analysisResult"`
	Notifications []domain.Notification  `json:"notifications"`
}

// Session is the state owned by one browser tab: inputs, the simulator,
// the presenter and the notification feed. mu guards input, lastSeen and
// settled; the simulator and notices carry their own locks and are always
// taken after mu.
type Session struct {
	ID string

	clock     application.Clock
	notices   *Notices
	sim       *Simulator
	presenter *Presenter

	recorder Recorder

	mu       sync.Mutex
	input    *InputController
	lastSeen time.Time
	closed   bool
	// settled is the last run whose completion effects were applied.
	settled uint64
}

type sessionDeps struct {
	clock      application.Clock
	simCfg     SimulatorConfig
	extensions []string
	generator  domain.ResultGenerator
	exporter   domain.ReportExporter
	recorder   Recorder
}

func newSession(id string, deps sessionDeps) *Session {
	notices := NewNotices(deps.clock)
	s := &Session{
		ID:        id,
		clock:     deps.clock,
		notices:   notices,
		sim:       NewSimulator(deps.simCfg, deps.generator, deps.clock),
		presenter: NewPresenter(deps.exporter, notices),
		input:     NewInputController(deps.extensions, notices),
		recorder:  deps.recorder,
		lastSeen:  deps.clock.Now(),
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	s.sim.OnComplete = func(run uint64, _ *domain.AnalysisResult) {
		s.analysisDone(run)
	}
	return s
}

func (s *Session) touch() { s.lastSeen = s.clock.Now() }

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) SetAddress(text string) View {
	s.mu.Lock()
	s.touch()
	s.input.SetAddress(text)
	s.mu.Unlock()
	return s.View()
}

func (s *Session) SelectFile(name string) (View, error) {
	s.mu.Lock()
	s.touch()
	err := s.input.SelectFile(name)
	s.mu.Unlock()
	return s.View(), err
}

func (s *Session) RemoveFile() View {
	s.mu.Lock()
	s.touch()
	s.input.RemoveFile()
	s.mu.Unlock()
	return s.View()
}

// StartAnalysis validates the active input and starts a run. A completed
// run is discarded first; a running one is rejected.
func (s *Session) StartAnalysis() (View, error) {
	s.mu.Lock()
	s.touch()
	if s.closed {
		s.mu.Unlock()
		return View{}, domain.ErrSessionNotFound
	}

	state := s.sim.Snapshot().State
	if state == StateRunning {
		s.mu.Unlock()
		return s.View(), domain.ErrAnalysisInFlight
	}

	// the completion callback may still be waiting for mu
	s.settleLocked()
	req, err := s.input.Request()
	if err != nil {
		s.mu.Unlock()
		return s.View(), err
	}
	if state == StateComplete {
		s.sim.Reset()
	}
	if err := s.sim.Start(req); err != nil {
		s.mu.Unlock()
		return s.View(), fmt.Errorf("start analysis: %w", err)
	}
	s.mu.Unlock()
	return s.View(), nil
}

func (s *Session) Reset() View {
	s.mu.Lock()
	s.touch()
	s.settleLocked()
	s.sim.Reset()
	s.mu.Unlock()
	return s.View()
}

// Export renders the current result through the presenter. Export failures
// leave the result untouched.
func (s *Session) Export(ctx context.Context) (*domain.Document, error) {
	s.mu.Lock()
	s.touch()
	snap := s.sim.Snapshot()
	s.mu.Unlock()

	var res *domain.AnalysisResult
	if snap.State == StateComplete {
		res = snap.Result
	}
	return s.presenter.Export(ctx, res)
}

func (s *Session) Dismiss(notificationID string) bool {
	s.mu.Lock()
	s.touch()
	s.mu.Unlock()
	return s.notices.Dismiss(notificationID)
}

// View snapshots the session. Reading counts as activity, so a polling
// client keeps its session alive.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	snap := s.sim.Snapshot()
	v := View{
		ID:            s.ID,
		State:         snap.State,
		Progress:      snap.Progress,
		Loading:       snap.State == StateRunning,
		Exporting:     s.presenter.Exporting(),
		Mode:          s.input.Mode(),
		Address:       s.input.Address(),
		FileName:      s.input.FileName(),
		Notifications: s.notices.Active(),
	}
	if snap.State == StateComplete {
		v.Result = snap.Result
	}
	return v
}

// Close stops the simulator. The session must not be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.sim.Close()
}

func (s *Session) analysisDone(run uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	// a reset between publish and this callback means a newer run owns the
	// state, and that reset already settled this one
	if s.sim.Snapshot().Run != run {
		return false
	}
	return s.settleLocked()
}

// settleLocked applies the effects of a completed run exactly once: file
// inputs are cleared, the completion notice is posted and the run is
// counted. Reports whether anything was applied.
func (s *Session) settleLocked() bool {
	snap := s.sim.Snapshot()
	if s.closed || snap.State != StateComplete || snap.Result == nil || s.settled == snap.Run {
		return false
	}
	s.settled = snap.Run
	if snap.Result.SourcedFromFile {
		s.input.Clear()
	}
	s.notices.Notify("Analysis Complete",
		fmt.Sprintf("Smart contract analysis for %s finished.", snap.Result.Identifier),
		domain.VariantDefault, 3*time.Second)
	s.recorder.AnalysisCompleted()
	return true
}

// IsValidation reports whether err is a user input error.
func IsValidation(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve)
}
