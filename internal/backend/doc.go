// Package backend ties the dashboard's components to one engine.
//
// # Overview
//
// DashboardBackend owns the application state and the components that derive
// views from it:
//
//   - the synchronization loop (poller.Loop)
//   - the version chain assembler (chain.Assembler)
//   - the visibility comparer (compare.Comparer)
//   - the notification center (notify.Center)
//
// Front ends (the REST API, the terminal UI and one-shot CLI commands) talk
// to the Backend interface only.
//
// # Mutations
//
// Transaction and row operations are forwarded to the engine. Every outcome
// is posted to the notification center, and a successful mutation is
// followed by an immediate poll so views reflect it without waiting for the
// next tick:
//
//	trx, err := be.Begin(ctx, model.RepeatableRead)
//	if err != nil {
//	    // already posted as a notification
//	}
//	rowID, err := be.Insert(ctx, trx.ID, model.Data{"name": "alice"})
//
// # Hot Reload
//
// ApplyConfig updates the poll interval, history cap, notification lifetime
// and probe concurrency of a running backend.
package backend
