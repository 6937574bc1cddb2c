package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("record not found")
	ErrTxnConflict  = errors.New("transaction conflict")
	ErrTxnExhausted = errors.New("transaction retries exhausted")
)
