package core

import "time"

// Session represents an authenticated wallet session carried by a bearer token
type Session struct {
	ID        string    // Unique token identifier (jti)
	Address   string    // Normalized wallet address of the user
	AccountID int64     // Reference to the account record
	IssuedAt  time.Time // When the session was issued
	ExpiresAt time.Time // When the session stops being accepted
}
