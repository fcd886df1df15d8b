package generator

import (
	"math/rand"
	"sync"
	"time"

	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
)

// Random is the mock "AI" behind the auditor: every value in the result is
// drawn from a pseudo-random source.
type Random struct {
	mu         sync.Mutex
	randSource *rand.Rand
}

// NewRandom seeds a dedicated source from the current time.
func NewRandom() *Random {
	return NewRandomWithSeed(time.Now().UnixNano())
}

// NewRandomWithSeed gives deterministic output for tests.
func NewRandomWithSeed(seed int64) *Random {
	return &Random{randSource: rand.New(rand.NewSource(seed))}
}

func (g *Random) Generate(req domain.AnalysisRequest) *domain.AnalysisResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	sev := domain.Severities[g.randSource.Intn(len(domain.Severities))]
	found := g.randSource.Intn(domain.MaxVulnerabilities + 1)
	confidence := domain.MinConfidence + g.randSource.Intn(domain.MaxConfidence-domain.MinConfidence+1)

	findings := make([]domain.Finding, 0, len(domain.Checks))
	for _, c := range domain.Checks {
		status := domain.StatusNotDetected
		if g.randSource.Float64() < c.Probability {
			status = domain.StatusDetected
		}
		findings = append(findings, domain.Finding{
			ID:        c.ID,
			Name:      c.Name,
			Status:    status,
			RiskLevel: c.RiskLevel,
		})
	}

	return &domain.AnalysisResult{
		Identifier:           req.Value,
		Severity:             sev,
		VulnerabilitiesFound: found,
		Confidence:           confidence,
		Summary:              domain.BuildSummary(req.Value, found, sev),
		Findings:             findings,
		SourcedFromFile:      req.Kind == domain.KindFile,
	}
}
