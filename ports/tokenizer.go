package ports

import "github.com/layer-3/questor/core"

// Tokenizer converts between sessions and signed bearer tokens
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)
	TokenToSession(token string) (*core.Session, error)
}

// SignatureVerifier checks that signature over message was produced by address
type SignatureVerifier interface {
	Verify(message, signature, address string) error
}
