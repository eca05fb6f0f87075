package enginetest

import (
	"time"

	"github.com/KilimcininKorOglu/mvccview/internal/model"
)

var epoch = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// ActiveTrx builds an active transaction that modified rows.
func ActiveTrx(id model.TrxID, isolation string, rows ...model.RowID) model.Transaction {
	if rows == nil {
		rows = []model.RowID{}
	}
	return model.Transaction{
		ID:             id,
		Status:         model.StatusActive,
		IsolationLevel: isolation,
		StartTime:      model.Time{Time: epoch.Add(time.Duration(id) * time.Second)},
		Operations:     []model.Operation{},
		ModifiedRows:   rows,
	}
}

// CommittedTrx builds a committed transaction.
func CommittedTrx(id model.TrxID, rows ...model.RowID) model.Transaction {
	t := ActiveTrx(id, model.ReadCommitted, rows...)
	t.Status = model.StatusCommitted
	commit := model.Time{Time: t.StartTime.Add(time.Second)}
	t.CommitTime = &commit
	return t
}

// Row builds a live row last written by writer.
func Row(id model.RowID, writer model.TrxID, data model.Data) model.Row {
	return model.Row{
		ID:           id,
		Data:         data,
		CurrentTrxID: &writer,
		CreateTime:   model.Time{Time: epoch},
	}
}

// UndoPtr returns a pointer to id.
func UndoPtr(id model.UndoID) *model.UndoID {
	return &id
}
