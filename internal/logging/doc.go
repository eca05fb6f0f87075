// Package logging provides structured logging for the mvccview dashboard.
//
// # Overview
//
// The logging package provides a structured logging interface with support for:
//
//   - Multiple log levels (debug, info, warn, error)
//   - Text and JSON output formats
//   - Request ID tracking for dashboard API calls
//   - Source tags naming the emitting component
//
// # Creating a Logger
//
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stderr",
//	})
//
// For testing, use a no-op logger:
//
//	logger := logging.NewNop()
//
// # Structured Logging
//
//	logger.WithSource("poller").Warn("snapshot fetch failed",
//	    "error", err,
//	    "attempt", tick,
//	)
//
// Output (text format):
//
//	2026-02-18T10:30:00Z [warn] snapshot fetch failed source=poller attempt=4 error=connection refused
//
// # Request ID Tracking
//
//	requestID := logging.GenerateRequestID() // a random UUID
//	reqLogger := logger.WithRequestID(requestID)
package logging
