package state

import (
	"time"

	"github.com/tidwall/btree"

	"github.com/KilimcininKorOglu/mvccview/internal/model"
)

// History retains every committed transaction seen by the client, ordered
// by commit time and then id. Entries are never evicted; only Clear empties it.
type History struct {
	tree *btree.BTreeG[model.Transaction]
}

func commitOrder(a, b model.Transaction) bool {
	at, bt := commitTime(a), commitTime(b)
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return a.ID < b.ID
}

func commitTime(t model.Transaction) time.Time {
	if t.CommitTime == nil {
		return time.Time{}
	}
	return t.CommitTime.Time
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{tree: btree.NewBTreeGOptions(commitOrder, btree.Options{NoLocks: true})}
}

// Record adds committed transactions that are not yet known.
// It returns how many were added.
func (h *History) Record(committed []model.Transaction) int {
	added := 0
	for _, trx := range committed {
		if _, replaced := h.tree.Set(trx); !replaced {
			added++
		}
	}
	return added
}

// Len returns the number of retained transactions.
func (h *History) Len() int {
	return h.tree.Len()
}

// Recent returns at most limit transactions, most recently committed first.
// A limit <= 0 returns all of them.
func (h *History) Recent(limit int) []model.Transaction {
	var out []model.Transaction
	h.tree.Reverse(func(trx model.Transaction) bool {
		out = append(out, trx)
		return limit <= 0 || len(out) < limit
	})
	return out
}

// Clear drops every entry.
func (h *History) Clear() {
	h.tree.Clear()
}
