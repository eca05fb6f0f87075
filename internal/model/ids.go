package model

import "strconv"

// TrxID identifies a transaction.
type TrxID int64

// String implements fmt.Stringer.
func (id TrxID) String() string { return strconv.FormatInt(int64(id), 10) }

// RowID identifies a data row.
type RowID int64

// String implements fmt.Stringer.
func (id RowID) String() string { return strconv.FormatInt(int64(id), 10) }

// UndoID identifies an undo-log entry.
type UndoID int64

// String implements fmt.Stringer.
func (id UndoID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseTrxID parses a decimal transaction id.
func ParseTrxID(s string) (TrxID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	return TrxID(n), err
}

// ParseRowID parses a decimal row id.
func ParseRowID(s string) (RowID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	return RowID(n), err
}

// Status is a transaction's lifecycle state.
type Status string

// Transaction states reported by the engine.
const (
	StatusActive    Status = "active"
	StatusCommitted Status = "committed"
	StatusAborted   Status = "aborted"
)

// LogType is the kind of change an undo entry reverses.
type LogType string

// Undo log types.
const (
	LogInsert LogType = "INSERT"
	LogUpdate LogType = "UPDATE"
	LogDelete LogType = "DELETE"
)

// Isolation levels understood by the engine.
const (
	ReadCommitted  = "READ_COMMITTED"
	RepeatableRead = "REPEATABLE_READ"
)

// Data is a row's user-visible column values.
type Data map[string]interface{}
