// Package state holds the dashboard's process-wide mutable state: the
// current snapshot, the focused row and the committed history.
//
// The poller is the only writer of the snapshot; focus events are the only
// writers of the focused row. Readers may run on any goroutine.
package state

import (
	"sync"

	"github.com/KilimcininKorOglu/mvccview/internal/model"
)

// DefaultHistoryLimit is how many committed transactions are displayed.
const DefaultHistoryLimit = 10

// Token identifies one focus assignment. A result computed under a token is
// stale once the focus has changed again.
type Token struct {
	Row        model.RowID
	Focused    bool
	Generation uint64
}

// App is the single owner of shared dashboard state.
type App struct {
	mu           sync.RWMutex
	snapshot     *model.Snapshot
	focus        *model.RowID
	generation   uint64
	history      *History
	historyLimit int
	resetHooks   []func()
}

// New returns empty application state. historyLimit caps History().
func New(historyLimit int) *App {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &App{history: NewHistory(), historyLimit: historyLimit}
}

// Snapshot returns the current snapshot, or nil before the first poll.
// Snapshots are never mutated after Publish.
func (a *App) Snapshot() *model.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// Publish atomically replaces the current snapshot and records its committed
// transactions. It returns the snapshot it replaced.
func (a *App) Publish(s *model.Snapshot) *model.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev := a.snapshot
	a.snapshot = s
	if s != nil {
		a.history.Record(s.Transactions.Committed)
	}
	return prev
}

// SetFocus makes row the focused row and returns the token for it.
func (a *App) SetFocus(row model.RowID) Token {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.focus = &row
	a.generation++
	return Token{Row: row, Focused: true, Generation: a.generation}
}

// ClearFocus removes the focus.
func (a *App) ClearFocus() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.focus = nil
	a.generation++
}

// Focus returns the focused row, if any.
func (a *App) Focus() (model.RowID, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.focus == nil {
		return 0, false
	}
	return *a.focus, true
}

// FocusToken returns the token of the current focus.
func (a *App) FocusToken() Token {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.focus == nil {
		return Token{Generation: a.generation}
	}
	return Token{Row: *a.focus, Focused: true, Generation: a.generation}
}

// IsCurrent reports whether tok still describes the current focus.
func (a *App) IsCurrent(tok Token) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return tok.Generation == a.generation
}

// History returns the retained committed transactions, newest first,
// capped to the configured limit.
func (a *App) History() []model.Transaction {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.history.Recent(a.historyLimit)
}

// HistoryLen returns how many committed transactions have been retained.
func (a *App) HistoryLen() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.history.Len()
}

// SetHistoryLimit changes the display cap.
func (a *App) SetHistoryLimit(n int) {
	if n <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.historyLimit = n
}

// OnReset registers fn to run after Reset. Hooks run outside the lock.
func (a *App) OnReset(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetHooks = append(a.resetHooks, fn)
}

// Reset forgets the snapshot, focus and history, then runs reset hooks.
func (a *App) Reset() {
	a.mu.Lock()
	a.snapshot = nil
	a.focus = nil
	a.generation++
	a.history.Clear()
	hooks := append([]func(){}, a.resetHooks...)
	a.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}
