package audit

import "context"

// ResultGenerator synthesises the result of a finished analysis run.
// The random implementation lives in infra/generator; a real analyser would
// implement the same port.
type ResultGenerator interface {
	Generate(req AnalysisRequest) *AnalysisResult
}

// Document is an exported report ready to be offered as a download.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportExporter turns a result into a downloadable document.
type ReportExporter interface {
	Export(ctx context.Context, r *AnalysisResult) (*Document, error)
}

// ReportRenderer renders a result into document bytes locally.
type ReportRenderer interface {
	Render(r *AnalysisResult) ([]byte, error)
}
