package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across layers.
var (
	ErrNotFound               = errors.New("not found")
	ErrNoFrame                = errors.New("no frame available")
	ErrDetectionService       = errors.New("detection service error")
	ErrMalformedResponse      = errors.New("malformed enrichment response")
	ErrUnreachable            = errors.New("enrichment service unreachable")
	ErrEnrichmentInFlight     = errors.New("enrichment already in flight")
	ErrNothingToEnrich        = errors.New("no detections to enrich")
	ErrProfileService         = errors.New("profile service error")
	ErrRegistrationIncomplete = errors.New("registration is incomplete")
	ErrNoProfile              = errors.New("no user profile loaded")
	ErrNoRecipe               = errors.New("no recipe selected")
)

// EnrichmentErrorKind classifies an enrichment failure.
type EnrichmentErrorKind int

const (
	EnrichmentUnreachable EnrichmentErrorKind = iota
	EnrichmentMalformed
)

// EnrichmentError is returned by enrichers. It unwraps to
// ErrUnreachable or ErrMalformedResponse depending on Kind.
type EnrichmentError struct {
	Kind EnrichmentErrorKind
	Err  error
}

// Error implements error.
func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("%v: %v", e.sentinel(), e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *EnrichmentError) Unwrap() []error {
	return []error{e.sentinel(), e.Err}
}

func (e *EnrichmentError) sentinel() error {
	if e.Kind == EnrichmentMalformed {
		return ErrMalformedResponse
	}
	return ErrUnreachable
}

// Malformed wraps err as a malformed-response enrichment error.
func Malformed(err error) error {
	return &EnrichmentError{Kind: EnrichmentMalformed, Err: err}
}

// Unreachable wraps err as a transport enrichment error.
func Unreachable(err error) error {
	return &EnrichmentError{Kind: EnrichmentUnreachable, Err: err}
}
