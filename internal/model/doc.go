// Package model holds the typed projection of one polled engine state.
//
// Every type here mirrors what the storage engine reports through its JSON
// API: transactions with their read views and audit operations, the current
// head version of each row, per-row version lists, and undo-log entries
// linked by roll pointers. Values are treated as read-only once decoded; a
// poll produces a brand new *Snapshot rather than mutating the previous one.
//
// # Undo Chains
//
// Undo entries for one row form a singly linked list through RollPointer,
// newest to oldest, ending at an entry without a roll pointer:
//
//	chain := model.UndoChain(detail.UndoChain)
//	entries, err := chain.Walk(3) // 3 -> 2 -> 1
//
// Walk never loops: a cycle yields ErrUndoCycle and a pointer to a missing
// entry yields ErrDanglingRollPointer.
//
// # Row Sets
//
// RowSet is a compressed set of row ids used to compare the modified rows
// of two consecutive snapshots.
package model
