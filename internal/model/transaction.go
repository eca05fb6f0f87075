package model

import "sort"

// ReadView is the set of transactions a reader treats as in progress.
// It is immutable once attached to a Transaction.
type ReadView struct {
	CreatorTrxID TrxID   `json:"creator_trx_id"`
	ActiveIDs    []TrxID `json:"m_ids"`
	MinTrxID     TrxID   `json:"min_trx_id"`
	MaxTrxID     TrxID   `json:"max_trx_id"`
	CreateTime   Time    `json:"create_time"`
}

// WasActive reports whether id was in progress when the view was created.
// ActiveIDs is sorted ascending by the engine.
func (rv *ReadView) WasActive(id TrxID) bool {
	idx := sort.Search(len(rv.ActiveIDs), func(i int) bool {
		return rv.ActiveIDs[i] >= id
	})
	return idx < len(rv.ActiveIDs) && rv.ActiveIDs[idx] == id
}

// Operation is one audit entry inside a Transaction.
type Operation struct {
	Type      string                 `json:"type"`
	RowID     RowID                  `json:"row_id"`
	Timestamp Time                   `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Transaction is the engine's description of one transaction.
type Transaction struct {
	ID             TrxID       `json:"trx_id"`
	Status         Status      `json:"status"`
	IsolationLevel string      `json:"isolation_level"`
	StartTime      Time        `json:"start_time"`
	CommitTime     *Time       `json:"commit_time"`
	ReadView       *ReadView   `json:"read_view"`
	Operations     []Operation `json:"operations"`
	ModifiedRows   []RowID     `json:"modified_rows"`
}

// IsActive reports whether the transaction is still running.
func (t *Transaction) IsActive() bool {
	return t.Status == StatusActive
}

// ModifiedSet returns the transaction's modified rows as a RowSet.
func (t *Transaction) ModifiedSet() RowSet {
	return NewRowSet(t.ModifiedRows...)
}

// Transactions groups transactions by lifecycle state as the engine lists them.
type Transactions struct {
	Active    []Transaction `json:"active"`
	Committed []Transaction `json:"committed"`
	Aborted   []Transaction `json:"aborted,omitempty"`
}
