package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KilimcininKorOglu/mvccview/internal/logging"
	"github.com/KilimcininKorOglu/mvccview/internal/metrics"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
)

// Operation names used for spans, metrics and EngineError.Op.
const (
	OpGetSnapshot     = "get_snapshot"
	OpGetRowDetail    = "get_row_detail"
	OpGetTransaction  = "get_transaction"
	OpCheckVisibility = "check_visibility"
	OpBegin           = "begin_transaction"
	OpCommit          = "commit_transaction"
	OpRollback        = "rollback_transaction"
	OpInsert          = "insert_row"
	OpUpdate          = "update_row"
	OpDelete          = "delete_row"
	OpReset           = "reset_system"
)

// maxBodySize bounds how much of a response is read.
const maxBodySize = 32 << 20

// Client talks to one engine instance.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is kept.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client's logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l.WithSource("engine") }
}

// New returns a client for the API rooted at baseURL, e.g.
// http://127.0.0.1:5001/api. A zero timeout means no per-request timeout.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetSnapshot fetches the full engine state and stamps FetchedAt.
func (c *Client) GetSnapshot(ctx context.Context) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := c.do(ctx, OpGetSnapshot, http.MethodGet, "/system/state", nil, &snap); err != nil {
		return nil, err
	}
	snap.FetchedAt = c.now()
	return &snap, nil
}

// GetRowDetail fetches a row together with its version chain and undo chain
// in one round trip. A nil VersionChain in the result means no history.
func (c *Client) GetRowDetail(ctx context.Context, row model.RowID) (*model.RowDetail, error) {
	var detail model.RowDetail
	if err := c.do(ctx, OpGetRowDetail, http.MethodGet, "/row/"+row.String(), nil, &detail, attribute.Int64("row_id", int64(row))); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetTransaction fetches one transaction descriptor.
func (c *Client) GetTransaction(ctx context.Context, trx model.TrxID) (*model.Transaction, error) {
	var t model.Transaction
	if err := c.do(ctx, OpGetTransaction, http.MethodGet, "/transaction/"+trx.String(), nil, &t, attribute.Int64("trx_id", int64(trx))); err != nil {
		return nil, err
	}
	return &t, nil
}

// Visibility is the engine's answer to a read under a transaction's snapshot.
type Visibility struct {
	// Visible is false when the engine found no version the reader may see.
	Visible bool
	Data    model.Data
}

// CheckVisibility asks the engine what trx reads for row.
func (c *Client) CheckVisibility(ctx context.Context, trx model.TrxID, row model.RowID) (Visibility, error) {
	req := map[string]interface{}{"trx_id": trx, "row_id": row}
	var resp struct {
		result
		Data json.RawMessage `json:"data"`
	}
	err := c.do(ctx, OpCheckVisibility, http.MethodPost, "/data/read", req, &resp,
		attribute.Int64("trx_id", int64(trx)), attribute.Int64("row_id", int64(row)))
	if err != nil {
		return Visibility{}, err
	}
	if err := resp.check(OpCheckVisibility); err != nil {
		return Visibility{}, err
	}
	if len(resp.Data) == 0 || bytes.Equal(resp.Data, []byte("null")) {
		return Visibility{}, nil
	}
	var data model.Data
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return Visibility{}, fmt.Errorf("%w: %s: data: %v", ErrMalformedResponse, OpCheckVisibility, err)
	}
	return Visibility{Visible: true, Data: data}, nil
}

// BeginTransaction starts a transaction at the given isolation level.
func (c *Client) BeginTransaction(ctx context.Context, isolation string) (*model.Transaction, error) {
	req := map[string]interface{}{"isolation_level": isolation}
	var t model.Transaction
	if err := c.do(ctx, OpBegin, http.MethodPost, "/transaction/begin", req, &t); err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, fmt.Errorf("%w: %s: missing trx_id", ErrMalformedResponse, OpBegin)
	}
	return &t, nil
}

// CommitTransaction commits trx.
func (c *Client) CommitTransaction(ctx context.Context, trx model.TrxID) error {
	return c.mutate(ctx, OpCommit, "/transaction/commit", map[string]interface{}{"trx_id": trx}, nil)
}

// RollbackTransaction rolls trx back.
func (c *Client) RollbackTransaction(ctx context.Context, trx model.TrxID) error {
	return c.mutate(ctx, OpRollback, "/transaction/rollback", map[string]interface{}{"trx_id": trx}, nil)
}

// InsertRow inserts a row under trx and returns its id.
func (c *Client) InsertRow(ctx context.Context, trx model.TrxID, data model.Data) (model.RowID, error) {
	var resp struct {
		result
		RowID *model.RowID `json:"row_id"`
	}
	req := map[string]interface{}{"trx_id": trx, "data": data}
	if err := c.mutate(ctx, OpInsert, "/data/insert", req, &resp); err != nil {
		return 0, err
	}
	if resp.RowID == nil {
		return 0, fmt.Errorf("%w: %s: missing row_id", ErrMalformedResponse, OpInsert)
	}
	return *resp.RowID, nil
}

// UpdateRow replaces row's data under trx.
func (c *Client) UpdateRow(ctx context.Context, trx model.TrxID, row model.RowID, data model.Data) error {
	req := map[string]interface{}{"trx_id": trx, "row_id": row, "data": data}
	return c.mutate(ctx, OpUpdate, "/data/update", req, nil)
}

// DeleteRow marks row deleted under trx.
func (c *Client) DeleteRow(ctx context.Context, trx model.TrxID, row model.RowID) error {
	req := map[string]interface{}{"trx_id": trx, "row_id": row}
	return c.mutate(ctx, OpDelete, "/data/delete", req, nil)
}

// ResetSystem wipes all engine state.
func (c *Client) ResetSystem(ctx context.Context) error {
	return c.mutate(ctx, OpReset, "/system/reset", struct{}{}, nil)
}

// result is the {success, error} envelope of mutation responses.
type result struct {
	Success *bool  `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (r result) check(op string) error {
	if r.Success == nil {
		return fmt.Errorf("%w: %s: missing success field", ErrMalformedResponse, op)
	}
	if !*r.Success {
		return &EngineError{Op: op, Message: r.Error}
	}
	return nil
}

type checker interface {
	check(op string) error
}

// mutate posts body and checks the success envelope. out, when non-nil,
// must embed result.
func (c *Client) mutate(ctx context.Context, op, path string, body interface{}, out checker) error {
	if out == nil {
		out = &result{}
	}
	if err := c.do(ctx, op, http.MethodPost, path, body, out); err != nil {
		return err
	}
	return out.check(op)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}, attrs ...attribute.KeyValue) (err error) {
	ctx, span := otel.Tracer("engine").Start(ctx, "engine."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("http.method", method))...),
	)
	defer span.End()

	timer := prometheus.NewTimer(metrics.EngineRequestDuration.WithLabelValues(op))
	defer timer.ObserveDuration()

	defer func() {
		if err != nil {
			metrics.EngineErrorsTotal.WithLabelValues(op).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Debug("engine request failed", "op", op, "path", path, "error", err)
		}
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("engine: %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("engine: %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("engine: %s: %w", op, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("engine: %s: read body: %w", op, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrNotFound, op, path)
	case resp.StatusCode >= 500:
		return fmt.Errorf("engine: %s: unexpected status %d", op, resp.StatusCode)
	case resp.StatusCode >= 400:
		// The engine answers some bad requests with a {success:false} body.
		var r result
		if json.Unmarshal(data, &r) == nil && r.Success != nil && !*r.Success {
			return &EngineError{Op: op, Message: r.Error}
		}
		return fmt.Errorf("engine: %s: unexpected status %d", op, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, op, err)
	}
	return nil
}
