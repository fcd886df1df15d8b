package reportclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
)

const (
	generatePath = "/generate-report"
	maxErrorBody = 4 << 10
	maxDocument  = 16 << 20
)

// Client exports results by delegating to the report generation service.
type Client struct {
	baseURL  string
	http     *http.Client
	maxBytes int64
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		maxBytes: maxDocument,
	}
}

// Export POSTs the result as JSON and returns the binary document.
func (c *Client) Export(ctx context.Context, r *domain.AnalysisResult) (*domain.Document, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, &domain.ExportError{Message: "encode result", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ExportError{Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.ExportError{Message: "report service unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.ExportError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, &domain.ExportError{Message: "read document", Err: err}
	}
	if int64(len(data)) > c.maxBytes {
		return nil, &domain.ExportError{Message: fmt.Sprintf("document exceeds %d bytes", c.maxBytes)}
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/pdf"
	}
	return &domain.Document{
		Filename:    domain.ReportFilename(r.Identifier),
		ContentType: ct,
		Body:        data,
	}, nil
}

// Ping checks that the report service answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("report service health: status %d", resp.StatusCode)
	}
	return nil
}
