package services

import "errors"

// Sentinel errors for the service layer. Handlers map these to HTTP status
// codes with errors.Is; services wrap them with fmt.Errorf("%w: ...").
var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)
