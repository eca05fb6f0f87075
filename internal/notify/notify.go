// Package notify keeps short-lived user-facing notifications, such as the
// result of a commit or an error the engine reported.
package notify

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KilimcininKorOglu/mvccview/internal/engine"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 3 * time.Second

// Level is a notification's severity.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one message shown to the user until it expires.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Center holds live notifications. Expired ones are pruned lazily.
type Center struct {
	mu    sync.Mutex
	ttl   time.Duration
	items []Notification
	now   func() time.Time
	subs  []func(Notification)
}

// NewCenter returns a center whose notifications live for ttl.
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{ttl: ttl, now: time.Now}
}

// SetTTL changes the lifetime of notifications posted from now on.
func (c *Center) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

// Subscribe registers fn to receive every posted notification.
func (c *Center) Subscribe(fn func(Notification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

// Post adds a notification and returns it.
func (c *Center) Post(level Level, message string) Notification {
	c.mu.Lock()
	now := c.now()
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.pruneLocked(now)
	c.items = append(c.items, n)
	subs := append([]func(Notification){}, c.subs...)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
	return n
}

// Info posts an informational notification.
func (c *Center) Info(message string) Notification {
	return c.Post(LevelInfo, message)
}

// Success posts a success notification.
func (c *Center) Success(message string) Notification {
	return c.Post(LevelSuccess, message)
}

// Failure posts err. Engine-reported failures show the engine's message.
func (c *Center) Failure(err error) Notification {
	var ee *engine.EngineError
	if errors.As(err, &ee) && ee.Message != "" {
		return c.Post(LevelError, ee.Message)
	}
	return c.Post(LevelError, err.Error())
}

// Active returns the notifications that have not expired, oldest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(c.now())
	return append([]Notification(nil), c.items...)
}

// Dismiss removes a notification before it expires.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every notification.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

func (c *Center) pruneLocked(now time.Time) {
	kept := c.items[:0]
	for _, n := range c.items {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	c.items = kept
}
