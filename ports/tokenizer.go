package ports

import "github.com/layer-3/faucet/core"

// Tokenizer converts between sessions and bearer tokens
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)

	// TokenToSession fails with core.ErrInvalidCredential or
	// core.ErrCredentialExpired.
	TokenToSession(token string) (*core.Session, error)
}

// SignatureVerifier checks wallet signatures over plain-text messages
type SignatureVerifier interface {
	// VerifySignature fails with core.ErrInvalidSignature unless signature
	// was produced over message by the key controlling address.
	VerifySignature(message, signature, address string) error
}
