package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-pdf/fpdf"

	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
)

const (
	title      = "Smart Contract Security Audit Report"
	disclaimer = "This report is a conceptual demonstration produced by a simulated analysis. " +
		"It is not a substitute for a full manual audit by security professionals."
)

type rgb struct{ r, g, b int }

var severityColor = map[domain.Severity]rgb{
	domain.SeverityHigh:   {220, 38, 38},
	domain.SeverityMedium: {202, 138, 4},
	domain.SeverityLow:    {22, 163, 74},
}

// Renderer lays an AnalysisResult out on a single A4 page.
type Renderer struct {
	// Now stamps the document; defaults to time.Now.
	Now func() time.Time
}

func NewRenderer() *Renderer { return &Renderer{Now: time.Now} }

func (rd *Renderer) Render(r *domain.AnalysisResult) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("render: nil result")
	}
	now := time.Now
	if rd.Now != nil {
		now = rd.Now
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(title, true)
	doc.SetCreator("automaton-audit reportd", true)
	doc.SetCreationDate(now())
	doc.SetMargins(20, 20, 20)
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 12, title, "", 1, "C", false, 0, "")
	doc.Ln(4)

	label := "Contract Address"
	if r.SourcedFromFile {
		label = "Source File"
	}
	field(doc, tr, label, displayIdentifier(r))

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(50, 8, "Overall Risk:", "", 0, "L", false, 0, "")
	c, ok := severityColor[r.Severity]
	if !ok {
		c = rgb{0, 0, 0}
	}
	doc.SetTextColor(c.r, c.g, c.b)
	doc.CellFormat(0, 8, tr(string(r.Severity)), "", 1, "L", false, 0, "")
	doc.SetTextColor(0, 0, 0)

	field(doc, tr, "Potential Vulnerabilities", fmt.Sprintf("%d", r.VulnerabilitiesFound))
	field(doc, tr, "Prediction Confidence", fmt.Sprintf("%d%%", r.Confidence))
	doc.Ln(2)

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 11)
	doc.MultiCell(0, 6, tr(r.Summary), "", "L", false)
	doc.Ln(4)

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, "Vulnerability Details", "", 1, "L", false, 0, "")
	doc.SetFillColor(241, 245, 249)
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(90, 8, "Check", "1", 0, "L", true, 0, "")
	doc.CellFormat(45, 8, "Status", "1", 0, "L", true, 0, "")
	doc.CellFormat(0, 8, "Risk", "1", 1, "L", true, 0, "")
	doc.SetFont("Helvetica", "", 10)
	for _, f := range r.Findings {
		doc.CellFormat(90, 8, tr(f.Name), "1", 0, "L", false, 0, "")
		if f.Detected() {
			doc.SetTextColor(220, 38, 38)
		} else {
			doc.SetTextColor(22, 163, 74)
		}
		doc.CellFormat(45, 8, tr(string(f.Status)), "1", 0, "L", false, 0, "")
		doc.SetTextColor(0, 0, 0)
		doc.CellFormat(0, 8, tr(string(f.RiskLevel)), "1", 1, "L", false, 0, "")
	}
	doc.Ln(6)

	doc.SetFont("Helvetica", "I", 8)
	doc.SetTextColor(100, 116, 139)
	doc.MultiCell(0, 4, fmt.Sprintf("Generated %s. %s", now().UTC().Format(time.RFC1123), disclaimer), "", "L", false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func field(doc *fpdf.Fpdf, tr func(string) string, label, value string) {
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(50, 8, label+":", "", 0, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 12)
	doc.CellFormat(0, 8, tr(value), "", 1, "L", false, 0, "")
}

// displayIdentifier shows EVM addresses in their EIP-55 checksummed form.
func displayIdentifier(r *domain.AnalysisResult) string {
	if !r.SourcedFromFile && common.IsHexAddress(r.Identifier) {
		return common.HexToAddress(r.Identifier).Hex()
	}
	return r.Identifier
}
