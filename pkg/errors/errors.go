package nearhire_errors

import "errors"

// Call engine errors. These are returned as explicit results, never
// panics: the presentation layer is expected to handle each of them.
var (
	ErrNotReady           = errors.New("backing service not ready")
	ErrAlreadyInCall      = errors.New("already in a call")
	ErrInvalidState       = errors.New("operation invalid in current call state")
	ErrTransportFailure   = errors.New("media transport failure")
	ErrConnectTimeout     = errors.New("call connect timeout")
	ErrReadinessExhausted = errors.New("readiness verification attempts exhausted")
)

// Common errors shared by the HTTP and storage surfaces.
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")
)
