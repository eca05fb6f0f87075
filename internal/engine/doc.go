// Package engine is the client for the storage engine's JSON-over-HTTP API.
//
// Every operation takes a context, runs under the client's request timeout,
// is traced with an OpenTelemetry span and timed in
// mvccview_engine_request_duration_seconds.
//
// Failure signaling:
//
//   - HTTP 404 becomes ErrNotFound.
//   - A body with "success": false becomes *EngineError.
//   - A body that cannot be decoded becomes ErrMalformedResponse.
//   - Anything else (dial, timeout, 5xx) is returned wrapped as is.
package engine
