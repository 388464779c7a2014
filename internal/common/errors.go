// Package common defines shared constants and sentinel errors used across
// the AwayKeeper layers. Callers should use errors.Is / errors.As to
// match these values.
package common

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")
	ErrForbidden  = errors.New("forbidden")
	ErrNotActive  = errors.New("entry is not active")

	// Validation errors.
	ErrParse        = errors.New("parse error")
	ErrConflict     = errors.New("entry overlaps an existing one")
	ErrInvalidRange = errors.New("return must not be before leave")
	ErrValidation   = errors.New("validation error")
)

// ParseError names the input field that could not be understood.
type ParseError struct {
	Field string
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not understand %s %q", e.Field, e.Input)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// ConflictError carries the existing entry the candidate interval collides with.
type ConflictError struct {
	EntryID  int64
	LeaveAt  time.Time
	ReturnAt *time.Time
	Reason   string
}

func (e *ConflictError) Error() string {
	end := "until further notice"
	if e.ReturnAt != nil {
		end = e.ReturnAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("overlaps entry %d (%s -> %s)", e.EntryID, e.LeaveAt.UTC().Format(time.RFC3339), end)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
