package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotification_Expired(t *testing.T) {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	n := Notification{DurationMS: 3000, CreatedAt: created}

	assert.False(t, n.Expired(created))
	assert.False(t, n.Expired(created.Add(3*time.Second)))
	assert.True(t, n.Expired(created.Add(3*time.Second+time.Millisecond)))
}
