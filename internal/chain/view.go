// Package chain assembles a row's version chain: the engine's version list
// joined with the row's undo log through undo ids and roll pointers.
package chain

import (
	"errors"
	"fmt"

	"github.com/KilimcininKorOglu/mvccview/internal/model"
)

// ErrNoHistory means the engine returned the row without a version chain.
var ErrNoHistory = errors.New("chain: row has no version history")

// Connector describes how a node links to the next older version.
type Connector string

const (
	// ConnectorRollPointer links through the paired undo entry's roll pointer.
	ConnectorRollPointer Connector = "roll_pointer"
	// ConnectorStructural links by list position only: the node has no paired
	// undo entry, or the entry has no roll pointer.
	ConnectorStructural Connector = "structural"
	// ConnectorTerminus marks the oldest version.
	ConnectorTerminus Connector = "terminus"
)

// Node is one version in display order.
type Node struct {
	// Rank counts from 1 for the oldest version; the newest has the highest rank.
	Rank    int           `json:"rank"`
	Version model.Version `json:"version"`
	// Undo is the entry referenced by Version.UndoID, if it resolved.
	Undo           *model.UndoLog `json:"undo,omitempty"`
	HasPredecessor bool           `json:"has_predecessor"`
	Connector      Connector      `json:"connector"`
	// RollPointer is the undo id the connector follows, for ConnectorRollPointer.
	RollPointer *model.UndoID `json:"roll_pointer,omitempty"`
}

// View is a row's assembled version chain, newest version first.
type View struct {
	RowID     model.RowID     `json:"row_id"`
	Row       *model.Row      `json:"row,omitempty"`
	Nodes     []Node          `json:"nodes"`
	UndoChain model.UndoChain `json:"undo_chain"`
	// Problems lists integrity violations found while joining, such as
	// roll pointer cycles or unresolved undo ids.
	Problems []string `json:"problems,omitempty"`
}

// Len returns the number of versions.
func (v *View) Len() int {
	return len(v.Nodes)
}

// Build joins detail's versions with its undo chain. It does no I/O.
func Build(row model.RowID, detail *model.RowDetail) (*View, error) {
	if detail == nil || detail.VersionChain == nil {
		return nil, ErrNoHistory
	}

	undo := model.UndoChain(detail.UndoChain)
	view := &View{RowID: row, Row: detail.Row, UndoChain: undo}
	if view.Row == nil {
		view.Row = detail.VersionChain.Row
	}

	if err := undo.Validate(); err != nil {
		view.Problems = append(view.Problems, err.Error())
	}

	versions := detail.VersionChain.Versions
	total := len(versions)
	view.Nodes = make([]Node, 0, total)
	for i := 0; i < total; i++ {
		v := versions[total-1-i]
		node := Node{
			Rank:           total - i,
			Version:        v,
			HasPredecessor: i < total-1,
		}

		u, ok, err := undo.Resolve(v, row)
		switch {
		case err != nil:
			view.Problems = append(view.Problems, fmt.Sprintf("version %d: %v", node.Rank, err))
		case ok:
			node.Undo = &u
		}

		switch {
		case !node.HasPredecessor:
			node.Connector = ConnectorTerminus
		case node.Undo != nil && node.Undo.HasRollPointer():
			node.Connector = ConnectorRollPointer
			node.RollPointer = node.Undo.RollPointer
		default:
			node.Connector = ConnectorStructural
		}

		view.Nodes = append(view.Nodes, node)
	}
	return view, nil
}
