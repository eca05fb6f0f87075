package rest

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/KilimcininKorOglu/mvccview/internal/backend"
	"github.com/KilimcininKorOglu/mvccview/internal/compare"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
)

// Handlers contains all REST API handlers.
type Handlers struct {
	backend      backend.Backend
	version      string
	startTime    time.Time
	requestCount int64
	activeConns  int64
}

// NewHandlers creates new handlers.
func NewHandlers(be backend.Backend, version string) *Handlers {
	return &Handlers{
		backend:   be,
		version:   version,
		startTime: time.Now(),
	}
}

// IncrementConnections increments active connection count.
func (h *Handlers) IncrementConnections() {
	atomic.AddInt64(&h.activeConns, 1)
}

// DecrementConnections decrements active connection count.
func (h *Handlers) DecrementConnections() {
	atomic.AddInt64(&h.activeConns, -1)
}

// HandleHealth handles GET /api/v1/health
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	resp := HealthResponse{
		Status:      "ok",
		Version:     h.version,
		Uptime:      uptime.String(),
		UptimeSecs:  int64(uptime.Seconds()),
		StartTime:   h.startTime,
		Connections: int(atomic.LoadInt64(&h.activeConns)),
		Requests:    atomic.LoadInt64(&h.requestCount),
	}
	if snap := h.backend.Snapshot(); snap != nil {
		at := snap.FetchedAt
		resp.LastPoll = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSnapshot handles GET /api/v1/snapshot
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)

	snap := h.backend.Snapshot()
	if snap == nil {
		writeBackendError(w, compare.ErrNoSnapshot)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleDashboard handles GET /api/v1/dashboard
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)
	writeJSON(w, http.StatusOK, h.backend.Dashboard())
}

// HandleShowChain handles GET /api/v1/rows/{id}/chain
func (h *Handlers) HandleShowChain(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)

	row, ok := rowParam(w, r)
	if !ok {
		return
	}
	view, err := h.backend.ShowChain(r.Context(), row)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleChain handles GET /api/v1/chain
func (h *Handlers) HandleChain(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)

	view := h.backend.Chain()
	if view == nil {
		writeError(w, http.StatusNotFound, "no_chain", "no version chain has been published")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleClearFocus handles DELETE /api/v1/chain
func (h *Handlers) HandleClearFocus(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)
	h.backend.ClearFocus()
	w.WriteHeader(http.StatusNoContent)
}

// HandleCompare handles GET /api/v1/compare
func (h *Handlers) HandleCompare(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)

	q := r.URL.Query()
	a, b := q.Get("a"), q.Get("b")

	var (
		cmp *compare.Comparison
		err error
	)
	switch {
	case a == "" && b == "":
		cmp, err = h.backend.CompareDefault(r.Context())
	case a == "" || b == "":
		writeError(w, http.StatusBadRequest, "invalid_request", "both a and b are required")
		return
	default:
		trxA, errA := model.ParseTrxID(a)
		trxB, errB := model.ParseTrxID(b)
		if errA != nil || errB != nil {
			writeError(w, http.StatusBadRequest, "invalid_trx_id", "transaction ids must be integers")
			return
		}
		cmp, err = h.backend.Compare(r.Context(), trxA, trxB)
	}
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// HandleNotifications handles GET /api/v1/notifications
func (h *Handlers) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)
	writeJSON(w, http.StatusOK, NotificationsResponse{Notifications: h.backend.Notifications()})
}

// HandleDismissNotification handles DELETE /api/v1/notifications/{id}
func (h *Handlers) HandleDismissNotification(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)

	if !h.backend.DismissNotification(Param(r, "id")) {
		writeError(w, http.StatusNotFound, "not_found", "notification not found or expired")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBegin handles POST /api/v1/transactions
func (h *Handlers) HandleBegin(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)

	var req BeginRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}
	switch req.IsolationLevel {
	case "", model.ReadCommitted, model.RepeatableRead:
	default:
		writeError(w, http.StatusBadRequest, "invalid_isolation", "isolation_level must be READ_COMMITTED or REPEATABLE_READ")
		return
	}

	trx, err := h.backend.Begin(r.Context(), req.IsolationLevel)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MutationResponse{Success: true, TrxID: trx.ID, Transaction: trx})
}

// HandleCommit handles POST /api/v1/transactions/{id}/commit
func (h *Handlers) HandleCommit(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)

	trx, ok := trxParam(w, r)
	if !ok {
		return
	}
	if err := h.backend.Commit(r.Context(), trx); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Success: true, TrxID: trx})
}

// HandleRollback handles POST /api/v1/transactions/{id}/rollback
func (h *Handlers) HandleRollback(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)

	trx, ok := trxParam(w, r)
	if !ok {
		return
	}
	if err := h.backend.Rollback(r.Context(), trx); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Success: true, TrxID: trx})
}

// HandleInsert handles POST /api/v1/rows
func (h *Handlers) HandleInsert(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)

	req, ok := decodeRowRequest(w, r)
	if !ok {
		return
	}
	row, err := h.backend.Insert(r.Context(), req.TrxID, req.Data)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MutationResponse{Success: true, TrxID: req.TrxID, RowID: row})
}

// HandleUpdate handles PUT /api/v1/rows/{id}
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)

	row, ok := rowParam(w, r)
	if !ok {
		return
	}
	req, ok := decodeRowRequest(w, r)
	if !ok {
		return
	}
	if err := h.backend.Update(r.Context(), req.TrxID, row, req.Data); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Success: true, TrxID: req.TrxID, RowID: row})
}

// HandleDelete handles DELETE /api/v1/rows/{id}?trx=
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)

	row, ok := rowParam(w, r)
	if !ok {
		return
	}
	trx, err := model.ParseTrxID(r.URL.Query().Get("trx"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_trx_id", "trx query parameter is required")
		return
	}
	if err := h.backend.Delete(r.Context(), trx, row); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Success: true, TrxID: trx, RowID: row})
}

// HandleRead handles POST /api/v1/rows/{id}/read
func (h *Handlers) HandleRead(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)

	row, ok := rowParam(w, r)
	if !ok {
		return
	}
	var req ReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.TrxID == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "trx_id is required")
		return
	}
	vis, err := h.backend.Read(r.Context(), req.TrxID, row)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReadResponse{TrxID: req.TrxID, RowID: row, Visible: vis.Visible, Data: vis.Data})
}

// HandleReset handles POST /api/v1/reset
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.requestCount, 1)

	if err := h.backend.Reset(r.Context()); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Success: true})
}

func rowParam(w http.ResponseWriter, r *http.Request) (model.RowID, bool) {
	row, err := model.ParseRowID(Param(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_row_id", "row id must be an integer")
		return 0, false
	}
	return row, true
}

func trxParam(w http.ResponseWriter, r *http.Request) (model.TrxID, bool) {
	trx, err := model.ParseTrxID(Param(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_trx_id", "transaction id must be an integer")
		return 0, false
	}
	return trx, true
}

func decodeRowRequest(w http.ResponseWriter, r *http.Request) (RowRequest, bool) {
	var req RowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return req, false
	}
	if req.TrxID == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "trx_id is required")
		return req, false
	}
	if req.Data == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "data is required")
		return req, false
	}
	return req, true
}
