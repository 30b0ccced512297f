package model

import "errors"

// Sentinel errors shared by repositories, services and the HTTP layer.
// Callers wrap them with fmt.Errorf("...: %w", ...) and match with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
)
