// Package rest exposes the dashboard over HTTP as JSON.
//
// Read endpoints serve the views the dashboard derives from the latest
// snapshot. Write endpoints forward mutations to the engine through the
// backend, which polls immediately afterwards.
//
// # Endpoints
//
// Views:
//
//	GET    /api/v1/snapshot            - Latest raw snapshot
//	GET    /api/v1/dashboard           - Primary view (transactions, rows, undo logs, read views)
//	GET    /api/v1/rows/{id}/chain     - Focus a row and return its version chain
//	GET    /api/v1/chain               - Last published version chain
//	DELETE /api/v1/chain               - Clear the focus and its chain
//	GET    /api/v1/compare?a=&b=       - Side-by-side visibility (default pair if omitted)
//	GET    /api/v1/notifications       - Live notifications
//	DELETE /api/v1/notifications/{id}  - Dismiss a notification
//
// Mutations:
//
//	POST   /api/v1/transactions               - Begin a transaction
//	POST   /api/v1/transactions/{id}/commit   - Commit
//	POST   /api/v1/transactions/{id}/rollback - Roll back
//	POST   /api/v1/rows                       - Insert a row
//	PUT    /api/v1/rows/{id}                  - Update a row
//	DELETE /api/v1/rows/{id}?trx=             - Delete a row
//	POST   /api/v1/rows/{id}/read             - Read a row under a transaction ({"trx_id": n})
//	POST   /api/v1/reset                      - Reset engine and dashboard state
//
// Other:
//
//	GET /api/v1/health - Health check
//	GET /metrics       - Prometheus metrics
//
// # Authentication
//
// When dashboard.username and dashboard.passwordHash are configured every
// endpoint except health and metrics requires HTTP Basic auth. The password
// is checked against the bcrypt hash.
//
// # Example Usage
//
//	curl -u admin:secret -X POST http://localhost:8090/api/v1/transactions \
//	  -H "Content-Type: application/json" \
//	  -d '{"isolation_level": "REPEATABLE_READ"}'
//
//	curl -u admin:secret "http://localhost:8090/api/v1/compare?a=1&b=2"
package rest
