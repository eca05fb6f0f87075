package rest

import (
	"time"

	"github.com/KilimcininKorOglu/mvccview/internal/model"
	"github.com/KilimcininKorOglu/mvccview/internal/notify"
)

// BeginRequest starts a transaction.
type BeginRequest struct {
	IsolationLevel string `json:"isolation_level"`
}

// RowRequest carries an insert or update.
type RowRequest struct {
	TrxID model.TrxID `json:"trx_id"`
	Data  model.Data  `json:"data"`
}

// ReadRequest names the transaction a row is read under.
type ReadRequest struct {
	TrxID model.TrxID `json:"trx_id"`
}

// ReadResponse is what one transaction reads for one row. Data is null when
// the row is not visible.
type ReadResponse struct {
	TrxID   model.TrxID `json:"trx_id"`
	RowID   model.RowID `json:"row_id"`
	Visible bool        `json:"visible"`
	Data    model.Data  `json:"data"`
}

// MutationResponse reports a forwarded mutation.
type MutationResponse struct {
	Success     bool               `json:"success"`
	TrxID       model.TrxID        `json:"trx_id,omitempty"`
	RowID       model.RowID        `json:"row_id,omitempty"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
}

// NotificationsResponse lists live notifications.
type NotificationsResponse struct {
	Notifications []notify.Notification `json:"notifications"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status      string     `json:"status"`
	Version     string     `json:"version"`
	Uptime      string     `json:"uptime"`
	UptimeSecs  int64      `json:"uptimeSecs"`
	StartTime   time.Time  `json:"startTime"`
	Connections int        `json:"connections"`
	Requests    int64      `json:"requests"`
	LastPoll    *time.Time `json:"lastPoll,omitempty"`
}
