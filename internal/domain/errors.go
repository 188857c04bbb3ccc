package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrTransient    = errors.New("transient upstream error")
	ErrNoProgress   = errors.New("pagination made no progress")

	ErrInsufficientData = errors.New("insufficient historical data")
)
