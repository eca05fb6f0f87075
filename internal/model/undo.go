package model

import (
	"errors"
	"fmt"
)

// Undo chain errors.
var (
	ErrDuplicateUndoID     = errors.New("duplicate undo id in chain")
	ErrUndoCycle           = errors.New("roll pointer cycle in undo chain")
	ErrDanglingRollPointer = errors.New("roll pointer references a missing undo entry")
	ErrUnresolvedUndo      = errors.New("version references a missing undo entry")
	ErrForeignUndo         = errors.New("version references an undo entry of another row")
)

// UndoLog is one undo entry.
type UndoLog struct {
	UndoID   UndoID  `json:"undo_id"`
	LogType  LogType `json:"log_type"`
	TrxID    TrxID   `json:"trx_id"`
	RowID    RowID   `json:"row_id"`
	OldValue Data    `json:"old_value"`
	NewValue Data    `json:"new_value"`
	// RollPointer weakly references the preceding entry for the same row.
	// Nil marks the earliest entry.
	RollPointer *UndoID `json:"roll_pointer"`
	CreateTime  Time    `json:"create_time"`
}

// HasRollPointer reports whether the entry links to a predecessor.
func (u *UndoLog) HasRollPointer() bool {
	return u.RollPointer != nil
}

// UndoChain is the set of undo entries for one row, in any order.
type UndoChain []UndoLog

// Index maps undo ids to entries.
func (c UndoChain) Index() (map[UndoID]UndoLog, error) {
	idx := make(map[UndoID]UndoLog, len(c))
	for _, u := range c {
		if _, dup := idx[u.UndoID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateUndoID, u.UndoID)
		}
		idx[u.UndoID] = u
	}
	return idx, nil
}

// Walk follows roll pointers starting at from and returns the visited
// entries, newest first. It takes at most len(c) steps.
func (c UndoChain) Walk(from UndoID) ([]UndoLog, error) {
	idx, err := c.Index()
	if err != nil {
		return nil, err
	}

	out := make([]UndoLog, 0, len(c))
	seen := make(map[UndoID]bool, len(c))
	next := &from
	for next != nil {
		if seen[*next] {
			return out, fmt.Errorf("%w: revisited %d", ErrUndoCycle, *next)
		}
		u, ok := idx[*next]
		if !ok {
			return out, fmt.Errorf("%w: %d", ErrDanglingRollPointer, *next)
		}
		seen[*next] = true
		out = append(out, u)
		next = u.RollPointer
	}
	return out, nil
}

// Validate checks that ids are unique and that every roll pointer path
// ends at an entry without a roll pointer.
func (c UndoChain) Validate() error {
	for _, u := range c {
		if _, err := c.Walk(u.UndoID); err != nil {
			return err
		}
	}
	return nil
}

// Resolve finds the undo entry paired with v. It returns ok=false when the
// version carries no undo id.
func (c UndoChain) Resolve(v Version, row RowID) (UndoLog, bool, error) {
	if v.UndoID == nil {
		return UndoLog{}, false, nil
	}
	var (
		found UndoLog
		count int
	)
	for _, u := range c {
		if u.UndoID == *v.UndoID {
			found = u
			count++
		}
	}
	switch {
	case count == 0:
		return UndoLog{}, false, fmt.Errorf("%w: %d", ErrUnresolvedUndo, *v.UndoID)
	case count > 1:
		return UndoLog{}, false, fmt.Errorf("%w: %d", ErrDuplicateUndoID, *v.UndoID)
	case found.RowID != row:
		return UndoLog{}, false, fmt.Errorf("%w: undo %d belongs to row %d", ErrForeignUndo, found.UndoID, found.RowID)
	}
	return found, true, nil
}
