package core

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrNotProvisioned = errors.New("domain not provisioned with provider")
	ErrInvalidInput   = errors.New("invalid input")
)
