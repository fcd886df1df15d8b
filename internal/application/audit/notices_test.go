package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
)

func TestNotices_ExpireAndDismiss(t *testing.T) {
	clock := newManualClock()
	n := NewNotices(clock)

	n.Notify("File Removed", "The selected file has been removed.", domain.VariantDefault, 2*time.Second)
	n.Notify("Input Error", "Please select a file to upload.", domain.VariantDestructive, 3*time.Second)

	active := n.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "File Removed", active[0].Title)
	assert.Equal(t, int64(2000), active[0].DurationMS)
	assert.Equal(t, domain.VariantDestructive, active[1].Variant)

	clock.Advance(2500 * time.Millisecond)
	active = n.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Input Error", active[0].Title)

	assert.True(t, n.Dismiss(active[0].ID))
	assert.False(t, n.Dismiss(active[0].ID))
	assert.Empty(t, n.Active())
}

func TestNotices_Bounded(t *testing.T) {
	n := NewNotices(newManualClock())
	for i := 0; i < maxNotices+5; i++ {
		n.Notify(fmt.Sprintf("n%d", i), "", domain.VariantDefault, time.Minute)
	}

	active := n.Active()
	require.Len(t, active, maxNotices)
	assert.Equal(t, "n5", active[0].Title)
	assert.Equal(t, fmt.Sprintf("n%d", maxNotices+4), active[len(active)-1].Title)
}
