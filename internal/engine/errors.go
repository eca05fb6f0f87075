package engine

import (
	"errors"
	"fmt"
)

// Client errors.
var (
	ErrNotFound          = errors.New("engine: not found")
	ErrMalformedResponse = errors.New("engine: malformed response")
	ErrInvalidURL        = errors.New("engine: invalid base url")
)

// EngineError is a failure the engine reported with "success": false.
type EngineError struct {
	Op      string
	Message string
}

func (e *EngineError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("engine: %s failed", e.Op)
	}
	return fmt.Sprintf("engine: %s: %s", e.Op, e.Message)
}

// IsEngineError reports whether err carries an engine-reported failure.
func IsEngineError(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee)
}
