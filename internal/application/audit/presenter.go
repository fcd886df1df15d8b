package audit

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
)

// Presenter renders the current result and exports it through a
// ReportExporter. At most one export runs at a time.
type Presenter struct {
	exporter  domain.ReportExporter
	notify    Notifier
	exporting atomic.Bool
}

func NewPresenter(exporter domain.ReportExporter, notify Notifier) *Presenter {
	return &Presenter{exporter: exporter, notify: notify}
}

// Exporting reports whether an export is in flight.
func (p *Presenter) Exporting() bool { return p.exporting.Load() }

// Export produces a document for res. A nil result is an ExportError and no
// document is produced.
func (p *Presenter) Export(ctx context.Context, res *domain.AnalysisResult) (*domain.Document, error) {
	if res == nil {
		p.emit("No Analysis Result", "Please analyze a contract first to generate a report.",
			domain.VariantDestructive, 3*time.Second)
		return nil, &domain.ExportError{Message: "no analysis result", Err: domain.ErrNoResult}
	}
	if !p.exporting.CompareAndSwap(false, true) {
		return nil, domain.ErrExportInFlight
	}
	defer p.exporting.Store(false)

	p.emit("Generating Report...", "Your PDF report is being prepared for download.",
		domain.VariantDefault, 3*time.Second)

	doc, err := p.exporter.Export(ctx, res)
	if err != nil {
		var ee *domain.ExportError
		if !errors.As(err, &ee) {
			ee = &domain.ExportError{Err: err}
		}
		p.emit("Report Download Failed", "Could not generate PDF report. "+ee.Error(),
			domain.VariantDestructive, 5*time.Second)
		return nil, ee
	}
	if doc.Filename == "" {
		doc.Filename = domain.ReportFilename(res.Identifier)
	}
	p.emit("Report Downloaded", "Your PDF report has been successfully downloaded.",
		domain.VariantDefault, 3*time.Second)
	return doc, nil
}

func (p *Presenter) emit(title, desc string, v domain.Variant, d time.Duration) {
	if p.notify != nil {
		p.notify.Notify(title, desc, v, d)
	}
}
