package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrStoreUnavailable wraps any primary-store failure on the read path.
	// It is absorbed by the fallback and only ever logged.
	ErrStoreUnavailable = errors.New("primary store unavailable")
	// ErrFallbackExhausted means the fallback dataset could not answer either.
	ErrFallbackExhausted = errors.New("catalog unavailable")
	ErrPersistence       = errors.New("order persistence failed")
	ErrNotification      = errors.New("merchant notification failed")
)

// ValidationError is returned by SubmitOrder before any side effect.
// Fields maps a json field path to the rule it broke.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid order: " + strings.Join(parts, ", ")
}
