// Package enginetest provides an in-process fake of the storage engine's
// HTTP API for tests.
package enginetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/KilimcininKorOglu/mvccview/internal/model"
)

// Answer is a canned CheckVisibility response.
type Answer struct {
	Visible bool
	Data    model.Data
	// Error, when set, is returned as {"success": false, "error": Error}.
	Error string
	// Status, when non-zero, replaces the response with a bare HTTP error.
	Status int
	// Delay holds the response back.
	Delay time.Duration
}

type probeKey struct {
	trx model.TrxID
	row model.RowID
}

// Engine is a fake engine. The zero value is not usable; call New.
type Engine struct {
	srv *httptest.Server

	mu         sync.Mutex
	snapshot   model.Snapshot
	details    map[model.RowID]model.RowDetail
	visibility map[probeKey]Answer
	failures   map[string]int
	requests   map[string]int
	detailHook func(model.RowID)
	nextTrx    model.TrxID
	nextRow    model.RowID
}

// New starts a fake engine. It is closed when the test ends.
func New(t interface{ Cleanup(func()) }) *Engine {
	e := &Engine{
		details:    make(map[model.RowID]model.RowDetail),
		visibility: make(map[probeKey]Answer),
		failures:   make(map[string]int),
		requests:   make(map[string]int),
		nextTrx:    1,
		nextRow:    1,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/system/state", e.handleState)
	mux.HandleFunc("POST /api/system/reset", e.handleReset)
	mux.HandleFunc("GET /api/row/{id}", e.handleRow)
	mux.HandleFunc("GET /api/transaction/{id}", e.handleTransaction)
	mux.HandleFunc("POST /api/transaction/begin", e.handleBegin)
	mux.HandleFunc("POST /api/transaction/commit", e.handleFinish(model.StatusCommitted))
	mux.HandleFunc("POST /api/transaction/rollback", e.handleFinish(model.StatusAborted))
	mux.HandleFunc("POST /api/data/read", e.handleRead)
	mux.HandleFunc("POST /api/data/insert", e.handleInsert)
	mux.HandleFunc("POST /api/data/update", e.handleUpdate)
	mux.HandleFunc("POST /api/data/delete", e.handleDelete)

	e.srv = httptest.NewServer(e.count(mux))
	t.Cleanup(e.srv.Close)
	return e
}

// URL returns the API root, suitable for engine.New.
func (e *Engine) URL() string {
	return e.srv.URL + "/api"
}

// SetSnapshot replaces the state served by /system/state.
func (e *Engine) SetSnapshot(s model.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshot = s
	for _, list := range [][]model.Transaction{s.Transactions.Active, s.Transactions.Committed, s.Transactions.Aborted} {
		for _, trx := range list {
			if trx.ID >= e.nextTrx {
				e.nextTrx = trx.ID + 1
			}
		}
	}
	for _, r := range s.Rows {
		if r.ID >= e.nextRow {
			e.nextRow = r.ID + 1
		}
	}
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// SetRowDetail sets the /row/{id} payload for a row.
func (e *Engine) SetRowDetail(id model.RowID, d model.RowDetail) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.details[id] = d
}

// OnRowDetail runs fn, outside the lock, before each /row/{id} response.
func (e *Engine) OnRowDetail(fn func(model.RowID)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detailHook = fn
}

// SetVisibility sets the /data/read answer for (trx, row). Pairs without an
// answer read the row's current data.
func (e *Engine) SetVisibility(trx model.TrxID, row model.RowID, a Answer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visibility[probeKey{trx, row}] = a
}

// FailNext makes the next n requests to path (e.g. "/system/state") answer
// with HTTP 500.
func (e *Engine) FailNext(path string, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[path] = n
}

// Requests returns how many requests path has received.
func (e *Engine) Requests(path string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests[path]
}

func (e *Engine) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		e.mu.Lock()
		e.requests[path]++
		fail := e.failures[path] > 0
		if fail {
			e.failures[path]--
		}
		e.mu.Unlock()
		if fail {
			http.Error(w, "injected failure", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func succeeded(extra map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{"success": true}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func failed(msg string) map[string]interface{} {
	return map[string]interface{}{"success": false, "error": msg}
}

type request struct {
	TrxID          model.TrxID `json:"trx_id"`
	RowID          model.RowID `json:"row_id"`
	Data           model.Data  `json:"data"`
	IsolationLevel string      `json:"isolation_level"`
}

func decode(r *http.Request) request {
	var req request
	_ = json.NewDecoder(r.Body).Decode(&req)
	return req
}

func (e *Engine) handleState(w http.ResponseWriter, _ *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	writeJSON(w, http.StatusOK, e.snapshot)
}

func (e *Engine) handleReset(w http.ResponseWriter, _ *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshot = model.Snapshot{}
	e.details = make(map[model.RowID]model.RowDetail)
	e.visibility = make(map[probeKey]Answer)
	e.nextTrx, e.nextRow = 1, 1
	writeJSON(w, http.StatusOK, succeeded(nil))
}

func (e *Engine) handleRow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Row not found"})
		return
	}
	row := model.RowID(id)

	e.mu.Lock()
	hook := e.detailHook
	e.mu.Unlock()
	if hook != nil {
		hook(row)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.details[row]; ok {
		writeJSON(w, http.StatusOK, d)
		return
	}
	current, found := e.snapshot.Row(row)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Row not found"})
		return
	}
	d := model.RowDetail{Row: &current, UndoChain: e.snapshot.UndoChainFor(row)}
	if vc, ok := e.snapshot.VersionChains[row]; ok {
		d.VersionChain = &vc
	}
	writeJSON(w, http.StatusOK, d)
}

func (e *Engine) handleTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseTrxID(r.PathValue("id"))
	e.mu.Lock()
	defer e.mu.Unlock()
	trx, found := e.snapshot.Transaction(id)
	if err != nil || !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Transaction not found"})
		return
	}
	writeJSON(w, http.StatusOK, trx)
}

func (e *Engine) handleBegin(w http.ResponseWriter, r *http.Request) {
	req := decode(r)
	if req.IsolationLevel == "" {
		req.IsolationLevel = model.ReadCommitted
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	trx := model.Transaction{
		ID:             e.nextTrx,
		Status:         model.StatusActive,
		IsolationLevel: req.IsolationLevel,
		StartTime:      model.Time{Time: time.Now()},
		Operations:     []model.Operation{},
		ModifiedRows:   []model.RowID{},
	}
	e.nextTrx++
	e.snapshot.Transactions.Active = append(e.snapshot.Transactions.Active, trx)
	writeJSON(w, http.StatusOK, trx)
}

func (e *Engine) handleFinish(status model.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := decode(r)
		e.mu.Lock()
		defer e.mu.Unlock()
		idx := e.activeIndex(req.TrxID)
		if idx < 0 {
			writeJSON(w, http.StatusOK, failed("Transaction not active"))
			return
		}
		trx := e.snapshot.Transactions.Active[idx]
		e.snapshot.Transactions.Active = append(e.snapshot.Transactions.Active[:idx:idx], e.snapshot.Transactions.Active[idx+1:]...)
		trx.Status = status
		now := model.Time{Time: time.Now()}
		trx.CommitTime = &now
		if status == model.StatusCommitted {
			e.snapshot.Transactions.Committed = append(e.snapshot.Transactions.Committed, trx)
		} else {
			e.snapshot.Transactions.Aborted = append(e.snapshot.Transactions.Aborted, trx)
		}
		writeJSON(w, http.StatusOK, succeeded(map[string]interface{}{"trx_id": trx.ID}))
	}
}

func (e *Engine) handleRead(w http.ResponseWriter, r *http.Request) {
	req := decode(r)

	e.mu.Lock()
	a, canned := e.visibility[probeKey{req.TrxID, req.RowID}]
	e.mu.Unlock()

	if canned {
		if a.Delay > 0 {
			time.Sleep(a.Delay)
		}
		switch {
		case a.Status != 0:
			http.Error(w, "injected failure", a.Status)
		case a.Error != "":
			writeJSON(w, http.StatusOK, failed(a.Error))
		case a.Visible:
			writeJSON(w, http.StatusOK, succeeded(map[string]interface{}{"data": a.Data}))
		default:
			writeJSON(w, http.StatusOK, succeeded(map[string]interface{}{"data": nil}))
		}
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeIndex(req.TrxID) < 0 {
		writeJSON(w, http.StatusOK, failed("Transaction not active"))
		return
	}
	row, found := e.snapshot.Row(req.RowID)
	if !found || row.Deleted {
		writeJSON(w, http.StatusOK, succeeded(map[string]interface{}{"data": nil}))
		return
	}
	writeJSON(w, http.StatusOK, succeeded(map[string]interface{}{"data": row.Data}))
}

func (e *Engine) handleInsert(w http.ResponseWriter, r *http.Request) {
	req := decode(r)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeIndex(req.TrxID) < 0 {
		writeJSON(w, http.StatusOK, failed("Transaction not active"))
		return
	}
	trx := req.TrxID
	row := model.Row{
		ID:           e.nextRow,
		Data:         req.Data,
		CurrentTrxID: &trx,
		CreateTime:   model.Time{Time: time.Now()},
	}
	e.nextRow++
	e.snapshot.Rows = append(e.snapshot.Rows, row)
	e.touch(req.TrxID, row.ID)
	writeJSON(w, http.StatusOK, succeeded(map[string]interface{}{"row_id": row.ID, "row": row}))
}

func (e *Engine) handleUpdate(w http.ResponseWriter, r *http.Request) {
	req := decode(r)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.writeRow(w, req, func(row *model.Row) { row.Data = req.Data }) {
		return
	}
	writeJSON(w, http.StatusOK, succeeded(map[string]interface{}{"row_id": req.RowID}))
}

func (e *Engine) handleDelete(w http.ResponseWriter, r *http.Request) {
	req := decode(r)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.writeRow(w, req, func(row *model.Row) { row.Deleted = true }) {
		return
	}
	writeJSON(w, http.StatusOK, succeeded(map[string]interface{}{"row_id": req.RowID}))
}

// writeRow applies fn to req's row when its transaction is active.
// Callers hold e.mu.
func (e *Engine) writeRow(w http.ResponseWriter, req request, fn func(*model.Row)) bool {
	if e.activeIndex(req.TrxID) < 0 {
		writeJSON(w, http.StatusOK, failed("Transaction not active"))
		return false
	}
	for i := range e.snapshot.Rows {
		if e.snapshot.Rows[i].ID != req.RowID {
			continue
		}
		trx := req.TrxID
		fn(&e.snapshot.Rows[i])
		e.snapshot.Rows[i].CurrentTrxID = &trx
		e.snapshot.Rows[i].UpdateTime = model.Time{Time: time.Now()}
		e.touch(req.TrxID, req.RowID)
		return true
	}
	writeJSON(w, http.StatusOK, failed("Row not found"))
	return false
}

// touch adds row to trx's modified rows. Callers hold e.mu.
func (e *Engine) touch(trx model.TrxID, row model.RowID) {
	idx := e.activeIndex(trx)
	if idx < 0 {
		return
	}
	t := &e.snapshot.Transactions.Active[idx]
	if t.ModifiedSet().Contains(row) {
		return
	}
	t.ModifiedRows = append(t.ModifiedRows, row)
	sort.Slice(t.ModifiedRows, func(i, j int) bool { return t.ModifiedRows[i] < t.ModifiedRows[j] })
}

func (e *Engine) activeIndex(trx model.TrxID) int {
	for i, t := range e.snapshot.Transactions.Active {
		if t.ID == trx {
			return i
		}
	}
	return -1
}
