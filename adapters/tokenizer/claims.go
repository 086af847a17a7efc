package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with the account reference
type SessionClaims struct {
	jwt.RegisteredClaims
	AccountID int64 `json:"uid"` // Internal account id
}
