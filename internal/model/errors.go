package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCriterion means the query identity cannot be searched for.
	ErrInvalidCriterion = errors.New("invalid query criterion")
	// ErrStoreUnavailable covers connectivity, authentication and timeout failures of a store.
	ErrStoreUnavailable = errors.New("telemetry store unavailable")
	// ErrNotFound means a query ID is in neither telemetry store.
	ErrNotFound = errors.New("query not found")
	// ErrStoreInconsistent means a query executed on this session is missing from the fast store.
	ErrStoreInconsistent = errors.New("telemetry store inconsistent")
	// ErrIncompleteRecord means a telemetry row lacks columns the analysis depends on.
	ErrIncompleteRecord = errors.New("incomplete metrics record")
	// ErrMalformedPlan means the explain text does not follow the expected layout.
	ErrMalformedPlan = errors.New("malformed explain plan")
)

// StoreError wraps a failure reported by the warehouse session.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStoreUnavailable) match any StoreError.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}
