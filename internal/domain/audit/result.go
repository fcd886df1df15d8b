package audit

import (
	"fmt"
	"time"
)

// Severity enum
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Severities lists every severity in ascending order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh}

// FindingStatus enum
type FindingStatus string

const (
	StatusDetected    FindingStatus = "Detected"
	StatusNotDetected FindingStatus = "Not Detected"
)

// Value ranges of a synthesised result.
const (
	MinConfidence      = 70
	MaxConfidence      = 99
	MaxVulnerabilities = 4
)

// Finding is the outcome of a single named security check.
type Finding struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    FindingStatus `json:"status"`
	RiskLevel Severity      `json:"risk"`
}

// Detected reports whether the check flagged the contract.
func (f Finding) Detected() bool { return f.Status == StatusDetected }

// Check describes one of the fixed security checks and how likely a mock run
// is to flag it.
type Check struct {
	ID          string
	Name        string
	RiskLevel   Severity
	Probability float64
}

// Checks are the three checks every result reports, in report order.
var Checks = []Check{
	{ID: "reentrancy", Name: "Reentrancy", RiskLevel: SeverityHigh, Probability: 0.30},
	{ID: "overflow", Name: "Integer Overflow/Underflow", RiskLevel: SeverityMedium, Probability: 0.40},
	{ID: "timestamp", Name: "Timestamp Dependence", RiskLevel: SeverityLow, Probability: 0.20},
}

// AnalysisResult is produced once per completed run. The JSON names match the
// payload the report service expects.
type AnalysisResult struct {
	Identifier           string    `json:"address"`
	Severity             Severity  `json:"severity"`
	VulnerabilitiesFound int       `json:"vulnerabilitiesFound"`
	Confidence           int       `json:"predictionConfidence"`
	Summary              string    `json:"reportSummary"`
	Findings             []Finding `json:"details"`
	SourcedFromFile      bool      `json:"isFileUpload"`
	CompletedAt          time.Time `json:"completedAt,omitempty"`
}

// BuildSummary renders the human readable one-line summary of a result.
func BuildSummary(identifier string, found int, sev Severity) string {
	noun := "vulnerabilities"
	if found == 1 {
		noun = "vulnerability"
	}
	return fmt.Sprintf("Analysis complete for %s. Found %d potential %s. Overall risk assessment: %s.",
		identifier, found, noun, sev)
}

// DetectedCount counts findings with status Detected.
func (r *AnalysisResult) DetectedCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Detected() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so callers can't mutate a published result.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Findings = append([]Finding(nil), r.Findings...)
	return &c
}
