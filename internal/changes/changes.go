// Package changes decides when the focused row's version chain is stale.
//
// The policy is edge-triggered: a refresh is due only on the first poll in
// which the focused row shows up among the rows modified by active
// transactions. Polls where the row stays modified, or is not modified at
// all, do not trigger.
package changes

import (
	"sync"

	"github.com/KilimcininKorOglu/mvccview/internal/model"
)

// Detect reports whether focused is newly modified: it is in curr and was
// not in prev. A nil focus never triggers.
func Detect(prev, curr model.RowSet, focused *model.RowID) bool {
	if focused == nil {
		return false
	}
	return curr.Contains(*focused) && !prev.Contains(*focused)
}

// Detector carries the previous modified-row set across polls.
type Detector struct {
	mu   sync.Mutex
	prev model.RowSet
}

// NewDetector returns a detector with an empty previous set.
func NewDetector() *Detector {
	return &Detector{prev: model.NewRowSet()}
}

// Observe compares curr with the set from the previous call, then records
// curr as the new previous set regardless of the outcome.
func (d *Detector) Observe(curr model.RowSet, focused *model.RowID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	fire := Detect(d.prev, curr, focused)
	d.prev = curr
	return fire
}

// Reset forgets the previous set.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prev = model.NewRowSet()
}
