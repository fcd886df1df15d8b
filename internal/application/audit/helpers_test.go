package audit

import (
	"context"
	"sync"
	"time"

	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
)

var fastSim = SimulatorConfig{
	Duration: 60 * time.Millisecond,
	Interval: 5 * time.Millisecond,
	Step:     10,
	Ceiling:  90,
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fixedGenerator returns the same shape of result for every request.
type fixedGenerator struct {
	severity domain.Severity
	found    int
}

func (g fixedGenerator) Generate(req domain.AnalysisRequest) *domain.AnalysisResult {
	sev := g.severity
	if sev == "" {
		sev = domain.SeverityHigh
	}
	findings := make([]domain.Finding, 0, len(domain.Checks))
	for _, c := range domain.Checks {
		findings = append(findings, domain.Finding{ID: c.ID, Name: c.Name, Status: domain.StatusNotDetected, RiskLevel: c.RiskLevel})
	}
	return &domain.AnalysisResult{
		Identifier:           req.Value,
		Severity:             sev,
		VulnerabilitiesFound: g.found,
		Confidence:           85,
		Summary:              domain.BuildSummary(req.Value, g.found, sev),
		Findings:             findings,
		SourcedFromFile:      req.Kind == domain.KindFile,
	}
}

// stubExporter records calls and optionally blocks until release is closed.
type stubExporter struct {
	mu      sync.Mutex
	calls   []*domain.AnalysisResult
	err     error
	started chan struct{}
	release chan struct{}
}

func (e *stubExporter) Export(ctx context.Context, r *domain.AnalysisResult) (*domain.Document, error) {
	e.mu.Lock()
	e.calls = append(e.calls, r)
	e.mu.Unlock()

	if e.started != nil {
		e.started <- struct{}{}
	}
	if e.release != nil {
		select {
		case <-e.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	return &domain.Document{ContentType: "application/pdf", Body: []byte("%PDF-1.3")}, nil
}

func (e *stubExporter) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// recordingNotifier captures notification titles.
type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (n *recordingNotifier) Notify(title, _ string, _ domain.Variant, _ time.Duration) {
	n.mu.Lock()
	n.titles = append(n.titles, title)
	n.mu.Unlock()
}

func (n *recordingNotifier) Titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.titles...)
}

type countingRecorder struct {
	mu                           sync.Mutex
	started, completed, exported int
	failed                       int
}

func (r *countingRecorder) AnalysisStarted() {
	r.mu.Lock()
	r.started++
	r.mu.Unlock()
}

func (r *countingRecorder) AnalysisCompleted() {
	r.mu.Lock()
	r.completed++
	r.mu.Unlock()
}

func (r *countingRecorder) ExportFinished(err error) {
	r.mu.Lock()
	r.exported++
	if err != nil {
		r.failed++
	}
	r.mu.Unlock()
}

func (r *countingRecorder) snapshot() (started, completed, exported, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started, r.completed, r.exported, r.failed
}
