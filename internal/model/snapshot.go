package model

import (
	"fmt"
	"time"
)

// Snapshot is one atomically fetched engine state.
type Snapshot struct {
	Transactions  Transactions           `json:"transactions"`
	Rows          []Row                  `json:"rows"`
	UndoLogs      []UndoLog              `json:"undo_logs"`
	VersionChains map[RowID]VersionChain `json:"version_chains,omitempty"`

	// FetchedAt is stamped by the client when the poll completed.
	FetchedAt time.Time `json:"-"`
}

// ModifiedRows returns the union of modified rows across active transactions.
func (s *Snapshot) ModifiedRows() RowSet {
	set := NewRowSet()
	if s == nil {
		return set
	}
	for _, trx := range s.Transactions.Active {
		for _, id := range trx.ModifiedRows {
			set.bm.Add(uint64(id))
		}
	}
	return set
}

// Row returns the row with the given id.
func (s *Snapshot) Row(id RowID) (Row, bool) {
	for _, r := range s.Rows {
		if r.ID == id {
			return r, true
		}
	}
	return Row{}, false
}

// Transaction looks a transaction up across all lifecycle lists.
func (s *Snapshot) Transaction(id TrxID) (Transaction, bool) {
	for _, list := range [][]Transaction{s.Transactions.Active, s.Transactions.Committed, s.Transactions.Aborted} {
		for _, trx := range list {
			if trx.ID == id {
				return trx, true
			}
		}
	}
	return Transaction{}, false
}

// RecentCommitted returns at most limit committed transactions, newest first.
// The engine lists committed transactions in commit order.
func (s *Snapshot) RecentCommitted(limit int) []Transaction {
	committed := s.Transactions.Committed
	if limit > 0 && len(committed) > limit {
		committed = committed[len(committed)-limit:]
	}
	out := make([]Transaction, len(committed))
	for i, trx := range committed {
		out[len(committed)-1-i] = trx
	}
	return out
}

// UndoChainFor returns the undo entries that belong to row.
func (s *Snapshot) UndoChainFor(row RowID) UndoChain {
	var chain UndoChain
	for _, u := range s.UndoLogs {
		if u.RowID == row {
			chain = append(chain, u)
		}
	}
	return chain
}

// Violation describes an active transaction whose modified-row set shrank
// between two snapshots.
type Violation struct {
	TrxID   TrxID
	Dropped RowSet
}

func (v Violation) String() string {
	return fmt.Sprintf("trx %d dropped modified rows %s", v.TrxID, v.Dropped)
}

// CheckMonotonic compares transactions active in both prev and curr and
// reports any whose modified rows are not a superset of the earlier set.
func CheckMonotonic(prev, curr *Snapshot) []Violation {
	if prev == nil || curr == nil {
		return nil
	}
	before := make(map[TrxID]RowSet, len(prev.Transactions.Active))
	for _, trx := range prev.Transactions.Active {
		before[trx.ID] = trx.ModifiedSet()
	}

	var out []Violation
	for _, trx := range curr.Transactions.Active {
		old, ok := before[trx.ID]
		if !ok {
			continue
		}
		if dropped := old.Difference(trx.ModifiedSet()); dropped.Len() > 0 {
			out = append(out, Violation{TrxID: trx.ID, Dropped: dropped})
		}
	}
	return out
}
