package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
)

func TestPresenter_ExportWithoutResult(t *testing.T) {
	exp := &stubExporter{}
	notes := &recordingNotifier{}
	p := NewPresenter(exp, notes)

	doc, err := p.Export(context.Background(), nil)
	assert.Nil(t, doc)

	var ee *domain.ExportError
	require.True(t, errors.As(err, &ee))
	assert.ErrorIs(t, err, domain.ErrNoResult)
	assert.Zero(t, exp.Calls())
	assert.Equal(t, []string{"No Analysis Result"}, notes.Titles())
}

func TestPresenter_ExportSuccess(t *testing.T) {
	exp := &stubExporter{}
	notes := &recordingNotifier{}
	p := NewPresenter(exp, notes)

	res := fixedGenerator{}.Generate(domain.AddressRequest("0xABC123"))
	doc, err := p.Export(context.Background(), res)
	require.NoError(t, err)

	assert.Equal(t, "audit-report-0xABC123.pdf", doc.Filename)
	assert.Equal(t, 1, exp.Calls())
	assert.False(t, p.Exporting())
	assert.Equal(t, []string{"Generating Report...", "Report Downloaded"}, notes.Titles())
}

func TestPresenter_ExportFailure(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"upstream status", &domain.ExportError{StatusCode: 500, Message: "boom"}, 500},
		{"plain error", errors.New("connection reset"), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			notes := &recordingNotifier{}
			p := NewPresenter(&stubExporter{err: tc.err}, notes)

			_, err := p.Export(context.Background(), fixedGenerator{}.Generate(domain.AddressRequest("0x1")))
			var ee *domain.ExportError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, tc.wantStatus, ee.StatusCode)
			assert.False(t, p.Exporting())
			assert.Equal(t, []string{"Generating Report...", "Report Download Failed"}, notes.Titles())
		})
	}
}

func TestPresenter_SingleExportInFlight(t *testing.T) {
	exp := &stubExporter{started: make(chan struct{}, 1), release: make(chan struct{})}
	p := NewPresenter(exp, nil)
	res := fixedGenerator{}.Generate(domain.AddressRequest("0x1"))

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = p.Export(context.Background(), res)
	}()

	select {
	case <-exp.started:
	case <-time.After(time.Second):
		t.Fatal("export did not start")
	}
	assert.True(t, p.Exporting())

	_, err := p.Export(context.Background(), res)
	assert.ErrorIs(t, err, domain.ErrExportInFlight)

	close(exp.release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, 1, exp.Calls())
	assert.False(t, p.Exporting())
}
