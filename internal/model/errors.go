package model

import (
	"github.com/rotisserie/eris"
)

// Sentinel errors surfaced by the engine. Callers match them with eris.Is.
var (
	ErrNotFound     = eris.New("not found")
	ErrInvalidInput = eris.New("invalid input")
	ErrInvalidState = eris.New("invalid state")
)

// InvalidInputf wraps ErrInvalidInput with a formatted message.
func InvalidInputf(format string, args ...any) error {
	return eris.Wrapf(ErrInvalidInput, format, args...)
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return eris.Wrapf(ErrNotFound, format, args...)
}
