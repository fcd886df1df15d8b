package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-audit/internal/application"
	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
)

// Recorder receives lifecycle events for metrics.
type Recorder interface {
	AnalysisStarted()
	AnalysisCompleted()
	ExportFinished(err error)
}

type nopRecorder struct{}

func (nopRecorder) AnalysisStarted() {}
func (nopRecorder) AnalysisCompleted() {}
func (nopRecorder) ExportFinished(_ error) {}

// Config tunes the service.
type Config struct {
	Simulator   SimulatorConfig
	Extensions  []string
	SessionTTL  time.Duration
	MaxSessions int
}

// Service keeps one Session per browser tab in memory and implements the
// auditor use-cases on top of them. Safe for concurrent use.
type Service struct {
	cfg       Config
	generator domain.ResultGenerator
	exporter  domain.ReportExporter
	clock     application.Clock
	recorder  Recorder
	log       *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewService(cfg Config, gen domain.ResultGenerator, exp domain.ReportExporter, clock application.Clock, rec Recorder, log *zap.Logger) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	return &Service{
		cfg:       cfg,
		generator: gen,
		exporter:  exp,
		clock:     clock,
		recorder:  rec,
		log:       log,
		sessions:  make(map[string]*Session),
	}
}

// Create opens a new idle session.
func (s *Service) Create() (View, error) {
	s.mu.Lock()
	if len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		return View{}, domain.ErrTooManySessions
	}
	id := uuid.NewString()
	sess := newSession(id, sessionDeps{
		clock:      s.clock,
		simCfg:     s.cfg.Simulator,
		extensions: s.cfg.Extensions,
		generator:  s.generator,
		exporter:   s.exporter,
		recorder:   s.recorder,
	})
	s.sessions[id] = sess
	s.mu.Unlock()

	s.log.Debug("session created", zap.String("session_id", id))
	return sess.View(), nil
}

func (s *Service) session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) Get(id string) (View, error) {
	sess, err := s.session(id)
	if err != nil {
		return View{}, err
	}
	return sess.View(), nil
}

// Delete tears a session down and stops its simulator.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.Close()
	s.log.Debug("session deleted", zap.String("session_id", id))
	return nil
}

func (s *Service) SetAddress(id, address string) (View, error) {
	sess, err := s.session(id)
	if err != nil {
		return View{}, err
	}
	return sess.SetAddress(address), nil
}

func (s *Service) SelectFile(id, name string) (View, error) {
	sess, err := s.session(id)
	if err != nil {
		return View{}, err
	}
	return sess.SelectFile(name)
}

func (s *Service) RemoveFile(id string) (View, error) {
	sess, err := s.session(id)
	if err != nil {
		return View{}, err
	}
	return sess.RemoveFile(), nil
}

// StartAnalysis kicks off the simulated analysis for a session.
func (s *Service) StartAnalysis(id string) (View, error) {
	sess, err := s.session(id)
	if err != nil {
		return View{}, err
	}
	v, err := sess.StartAnalysis()
	if err != nil {
		if IsValidation(err) {
			s.log.Info("analysis rejected", zap.String("session_id", id), zap.Error(err))
		}
		return v, err
	}
	s.recorder.AnalysisStarted()
	s.log.Info("analysis started",
		zap.String("session_id", id),
		zap.String("mode", string(v.Mode)))
	return v, nil
}

func (s *Service) Reset(id string) (View, error) {
	sess, err := s.session(id)
	if err != nil {
		return View{}, err
	}
	return sess.Reset(), nil
}

// Export produces the PDF for the session's current result.
func (s *Service) Export(ctx context.Context, id string) (*domain.Document, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	doc, err := sess.Export(ctx)
	if errors.Is(err, domain.ErrExportInFlight) {
		return nil, err
	}
	s.recorder.ExportFinished(err)
	if err != nil {
		s.log.Warn("report export failed", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	s.log.Info("report exported",
		zap.String("session_id", id),
		zap.String("filename", doc.Filename),
		zap.Int("bytes", len(doc.Body)))
	return doc, nil
}

func (s *Service) Dismiss(id, notificationID string) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}
	if !sess.Dismiss(notificationID) {
		return domain.ErrNoticeNotFound
	}
	return nil
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep closes sessions idle longer than the TTL and returns how many.
func (s *Service) Sweep() int {
	cutoff := s.clock.Now().Add(-s.cfg.SessionTTL)

	s.mu.Lock()
	var stale []*Session
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Close()
	}
	if len(stale) > 0 {
		s.log.Info("idle sessions evicted", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Close tears down every session.
func (s *Service) Close() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.Close()
	}
}
