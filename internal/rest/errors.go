package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/KilimcininKorOglu/mvccview/internal/chain"
	"github.com/KilimcininKorOglu/mvccview/internal/compare"
	"github.com/KilimcininKorOglu/mvccview/internal/engine"
)

// mapBackendError maps a backend error to HTTP status, error code and message.
func mapBackendError(err error) (int, string, string) {
	var ee *engine.EngineError
	switch {
	case errors.As(err, &ee):
		msg := ee.Message
		if msg == "" {
			msg = ee.Error()
		}
		return http.StatusConflict, "engine_rejected", msg
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found in engine"
	case errors.Is(err, chain.ErrNoHistory):
		return http.StatusNotFound, "no_history", "row has no version history"
	case errors.Is(err, chain.ErrStale):
		return http.StatusConflict, "stale", "focus changed while the chain was loading"
	case errors.Is(err, chain.ErrNoFocus):
		return http.StatusConflict, "no_focus", "no row is focused"
	case errors.Is(err, compare.ErrNoSnapshot):
		return http.StatusServiceUnavailable, "no_snapshot", "no snapshot has been fetched yet"
	case errors.Is(err, compare.ErrStale):
		return http.StatusConflict, "stale", "a later comparison replaced this one"
	case errors.Is(err, compare.ErrNoTransactions):
		return http.StatusConflict, "no_transactions", "no active transactions to compare"
	case errors.Is(err, engine.ErrMalformedResponse):
		return http.StatusBadGateway, "malformed_response", err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "engine_timeout", "engine did not respond in time"
	default:
		return http.StatusBadGateway, "engine_unavailable", err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   code,
		Code:    status,
		Message: message,
	})
}

func writeBackendError(w http.ResponseWriter, err error) {
	status, code, msg := mapBackendError(err)
	writeError(w, status, code, msg)
}
