package types

import "github.com/pkg/errors"

var (
	// ErrEncoding is returned for malformed accounts or borrow amounts.
	ErrEncoding = errors.New("encoding error")

	// ErrEmptyInput is returned when no entry survives zero-ceiling filtering.
	ErrEmptyInput = errors.New("no eligible whitelist entries")

	// ErrInvalidInput is returned for structurally invalid requests, such as duplicate accounts.
	ErrInvalidInput = errors.New("invalid input")
)
