package core

import "errors"

var (
	// Validation
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidAddress = errors.New("invalid wallet address")

	// Authentication
	ErrInvalidSignature = errors.New("invalid signature")
	ErrUnauthenticated  = errors.New("unauthenticated")

	// Lookup
	ErrQuestNotFound   = errors.New("quest not found")
	ErrAccountNotFound = errors.New("account not found")

	// Conflict
	ErrAlreadyCompleted = errors.New("quest already completed")

	// Transient
	ErrStoreUnavailable = errors.New("store unavailable")

	// Configuration
	ErrMissingSecret = errors.New("session signing secret is not configured")
)
