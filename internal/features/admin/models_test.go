package admin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionIdleExpired(t *testing.T) {
	now := time.Now()

	fresh := &AdminSession{LastActivity: now.Add(-5 * time.Minute)}
	assert.False(t, fresh.IdleExpired(now, sessionIdleLimit))

	onEdge := &AdminSession{LastActivity: now.Add(-sessionIdleLimit)}
	assert.False(t, onEdge.IdleExpired(now, sessionIdleLimit))

	stale := &AdminSession{LastActivity: now.Add(-sessionIdleLimit - time.Second)}
	assert.True(t, stale.IdleExpired(now, sessionIdleLimit))
}
