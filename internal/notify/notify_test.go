package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/mvccview/internal/engine"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCenter(ttl time.Duration) (*Center, *clock) {
	clk := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	c := NewCenter(ttl)
	c.now = clk.now
	return c, clk
}

func TestNotificationsExpire(t *testing.T) {
	c, clk := newTestCenter(3 * time.Second)

	first := c.Success("Transaction 1 committed")
	clk.t = clk.t.Add(2 * time.Second)
	c.Info("Row 4 inserted")
	require.Len(t, c.Active(), 2)

	clk.t = clk.t.Add(1500 * time.Millisecond)
	active := c.Active()
	require.Len(t, active, 1)
	assert.NotEqual(t, first.ID, active[0].ID)

	clk.t = clk.t.Add(2 * time.Second)
	assert.Empty(t, c.Active())
}

func TestFailureUsesEngineMessage(t *testing.T) {
	c, _ := newTestCenter(time.Second)

	n := c.Failure(&engine.EngineError{Op: engine.OpCommit, Message: "Transaction not active"})
	assert.Equal(t, LevelError, n.Level)
	assert.Equal(t, "Transaction not active", n.Message)

	n = c.Failure(errors.New("connection refused"))
	assert.Equal(t, "connection refused", n.Message)
}

func TestDismissAndSubscribe(t *testing.T) {
	c, _ := newTestCenter(0)
	assert.Equal(t, DefaultTTL, c.ttl)

	var got []Notification
	c.Subscribe(func(n Notification) { got = append(got, n) })

	n := c.Info("hello")
	require.Len(t, got, 1)
	assert.Equal(t, n.ID, got[0].ID)

	assert.True(t, c.Dismiss(n.ID))
	assert.False(t, c.Dismiss(n.ID))
	assert.Empty(t, c.Active())

	c.Info("again")
	c.Clear()
	assert.Empty(t, c.Active())
}
