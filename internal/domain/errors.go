package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrRateLimited    = errors.New("rate limited")
	ErrSessionExpired = errors.New("session expired")
	ErrContextDone    = errors.New("context cancelled")
)

// AcquisitionErrorKind classifies why a fetch against the marketplace
// API failed.
type AcquisitionErrorKind string

const (
	AcqExhausted AcquisitionErrorKind = "exhausted" // all escalation attempts spent
	AcqRejected  AcquisitionErrorKind = "rejected"  // session rejected (401/403/407)
	AcqNetwork   AcquisitionErrorKind = "network"   // transport level failure
)

// AcquisitionError reports a failed marketplace fetch.
type AcquisitionError struct {
	Kind     AcquisitionErrorKind
	Status   int
	Attempts int
	Err      error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition %s (status %d, attempts %d): %v", e.Kind, e.Status, e.Attempts, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// ParseError reports a malformed field on an otherwise usable item.
// Callers degrade the affected field rather than dropping the item.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ClosureScanError reports a detail page that could not be evaluated
// for closure. The listing stays active.
type ClosureScanError struct {
	CarID string
	Err   error
}

func (e *ClosureScanError) Error() string {
	return fmt.Sprintf("closure scan %s: %v", e.CarID, e.Err)
}

func (e *ClosureScanError) Unwrap() error { return e.Err }
