package reportclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
)

func sampleResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		Identifier:           "0xABC123",
		Severity:             domain.SeverityMedium,
		VulnerabilitiesFound: 1,
		Confidence:           80,
		Summary:              domain.BuildSummary("0xABC123", 1, domain.SeverityMedium),
		Findings: []domain.Finding{
			{ID: "reentrancy", Name: "Reentrancy", Status: domain.StatusNotDetected, RiskLevel: domain.SeverityHigh},
		},
	}
}

func TestClient_Export(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate-report", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.3 fake"))
	}))
	defer srv.Close()

	doc, err := New(srv.URL+"/", time.Second).Export(context.Background(), sampleResult())
	require.NoError(t, err)

	assert.Equal(t, "audit-report-0xABC123.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, []byte("%PDF-1.3 fake"), doc.Body)

	assert.Equal(t, "0xABC123", got["address"])
	assert.Equal(t, "Medium", got["severity"])
	assert.EqualValues(t, 1, got["vulnerabilitiesFound"])
	assert.EqualValues(t, 80, got["predictionConfidence"])
	assert.Contains(t, got, "reportSummary")
	assert.Contains(t, got, "details")
}

func TestClient_ExportServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "renderer crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	doc, err := New(srv.URL, time.Second).Export(context.Background(), sampleResult())
	assert.Nil(t, doc)

	var ee *domain.ExportError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, http.StatusInternalServerError, ee.StatusCode)
	assert.Equal(t, "renderer crashed", ee.Message)
	assert.Equal(t, "failed to generate report: 500 - renderer crashed", err.Error())
}

func TestClient_ExportUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Export(context.Background(), sampleResult())
	var ee *domain.ExportError
	require.True(t, errors.As(err, &ee))
	assert.Zero(t, ee.StatusCode)
	assert.Equal(t, "report service unreachable", ee.Message)
}

func TestClient_Ping(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" || !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	assert.NoError(t, c.Ping(context.Background()))

	healthy.Store(false)
	assert.Error(t, c.Ping(context.Background()))
}

func TestClient_ExportRejectsOversizeDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.3 0123456789"))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	c.maxBytes = 8

	doc, err := c.Export(context.Background(), sampleResult())
	assert.Nil(t, doc)
	var ee *domain.ExportError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "failed to generate report: document exceeds 8 bytes", err.Error())

	c.maxBytes = int64(len("%PDF-1.3 0123456789"))
	doc, err = c.Export(context.Background(), sampleResult())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.3 0123456789"), doc.Body)
}
