package model

// Row is the engine's current head version of a data row.
type Row struct {
	ID           RowID   `json:"row_id"`
	Data         Data    `json:"data"`
	CurrentTrxID *TrxID  `json:"trx_id"`
	RollPointer  *UndoID `json:"roll_pointer"`
	// DisplayRollPointer is the undo entry describing the previous version,
	// which the engine computes separately from its internal RollPointer.
	DisplayRollPointer *UndoID `json:"display_roll_pointer,omitempty"`
	CreateTime         Time    `json:"create_time"`
	UpdateTime         Time    `json:"update_time"`
	Deleted            bool    `json:"deleted"`
}

// LastWriter returns the transaction that last wrote the row, if known.
func (r *Row) LastWriter() (TrxID, bool) {
	if r.CurrentTrxID == nil {
		return 0, false
	}
	return *r.CurrentTrxID, true
}

// Version is one member of a row's version list.
type Version struct {
	TrxID     TrxID   `json:"trx_id"`
	Timestamp Time    `json:"timestamp"`
	Data      Data    `json:"data"`
	UndoID    *UndoID `json:"undo_id"`
}

// VersionChain is a row's version list, oldest first.
type VersionChain struct {
	Row      *Row      `json:"row,omitempty"`
	Versions []Version `json:"versions"`
}

// RowDetail is the single-round-trip payload describing one row's history.
// A nil VersionChain means the row has no history yet.
type RowDetail struct {
	Row          *Row          `json:"row,omitempty"`
	VersionChain *VersionChain `json:"version_chain"`
	UndoChain    []UndoLog     `json:"undo_chain"`
}
