package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/KilimcininKorOglu/mvccview/internal/engine"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
	"github.com/KilimcininKorOglu/mvccview/internal/notify"
)

// Begin starts a transaction.
func (b *DashboardBackend) Begin(ctx context.Context, isolation string) (*model.Transaction, error) {
	if isolation == "" {
		isolation = model.ReadCommitted
	}
	trx, err := b.engine.BeginTransaction(ctx, isolation)
	if err != nil {
		return nil, b.fail("begin transaction", err)
	}
	b.succeed(ctx, fmt.Sprintf("Transaction %d started (%s)", trx.ID, trx.IsolationLevel))
	return trx, nil
}

// Commit commits trx.
func (b *DashboardBackend) Commit(ctx context.Context, trx model.TrxID) error {
	if err := b.engine.CommitTransaction(ctx, trx); err != nil {
		return b.fail(fmt.Sprintf("commit transaction %d", trx), err)
	}
	b.succeed(ctx, fmt.Sprintf("Transaction %d committed", trx))
	return nil
}

// Rollback rolls trx back.
func (b *DashboardBackend) Rollback(ctx context.Context, trx model.TrxID) error {
	if err := b.engine.RollbackTransaction(ctx, trx); err != nil {
		return b.fail(fmt.Sprintf("roll back transaction %d", trx), err)
	}
	b.succeed(ctx, fmt.Sprintf("Transaction %d rolled back", trx))
	return nil
}

// Insert inserts a row under trx.
func (b *DashboardBackend) Insert(ctx context.Context, trx model.TrxID, data model.Data) (model.RowID, error) {
	row, err := b.engine.InsertRow(ctx, trx, data)
	if err != nil {
		return 0, b.fail("insert row", err)
	}
	b.succeed(ctx, fmt.Sprintf("Row %d inserted by transaction %d", row, trx))
	return row, nil
}

// Update replaces row's data under trx.
func (b *DashboardBackend) Update(ctx context.Context, trx model.TrxID, row model.RowID, data model.Data) error {
	if err := b.engine.UpdateRow(ctx, trx, row, data); err != nil {
		return b.fail(fmt.Sprintf("update row %d", row), err)
	}
	b.succeed(ctx, fmt.Sprintf("Row %d updated by transaction %d", row, trx))
	return nil
}

// Delete deletes row under trx.
func (b *DashboardBackend) Delete(ctx context.Context, trx model.TrxID, row model.RowID) error {
	if err := b.engine.DeleteRow(ctx, trx, row); err != nil {
		return b.fail(fmt.Sprintf("delete row %d", row), err)
	}
	b.succeed(ctx, fmt.Sprintf("Row %d deleted by transaction %d", row, trx))
	return nil
}

// Read asks the engine what trx reads for row. A row hidden from trx is a
// successful read with Visible false.
func (b *DashboardBackend) Read(ctx context.Context, trx model.TrxID, row model.RowID) (engine.Visibility, error) {
	vis, err := b.engine.CheckVisibility(ctx, trx, row)
	if err != nil {
		return engine.Visibility{}, b.fail(fmt.Sprintf("read row %d", row), err)
	}
	if !vis.Visible {
		b.announce(ctx, notify.LevelInfo, fmt.Sprintf("Row %d is not visible to transaction %d", row, trx))
		return vis, nil
	}
	data, _ := json.Marshal(vis.Data)
	b.announce(ctx, notify.LevelSuccess, fmt.Sprintf("Row %d read by transaction %d: %s", row, trx, data))
	return vis, nil
}

// Reset wipes the engine, then the client's snapshot, focus, history and
// published views.
func (b *DashboardBackend) Reset(ctx context.Context) error {
	if err := b.engine.ResetSystem(ctx); err != nil {
		return b.fail("reset system", err)
	}
	b.app.Reset()
	b.notes.Clear()
	b.succeed(ctx, "System reset")
	return nil
}

// fail posts err and returns it wrapped with the action.
func (b *DashboardBackend) fail(action string, err error) error {
	b.notes.Failure(err)
	b.logger.Warn("action failed", "action", action, "error", err)
	return fmt.Errorf("%s: %w", action, err)
}

func (b *DashboardBackend) succeed(ctx context.Context, msg string) {
	b.announce(ctx, notify.LevelSuccess, msg)
}

// announce posts msg and polls so views catch up immediately.
func (b *DashboardBackend) announce(ctx context.Context, level notify.Level, msg string) {
	b.notes.Post(level, msg)
	b.logger.Info(msg)
	if _, err := b.loop.Tick(ctx); err != nil {
		b.logger.Debug("post-action poll failed", "error", err)
	}
}
