package core

import "errors"

var (
	// ErrValidation is returned for malformed or missing request input
	ErrValidation = errors.New("validation error")

	// ErrInvalidChallenge is returned when a challenge message cannot be parsed
	// or was not issued for this server
	ErrInvalidChallenge = errors.New("invalid challenge")

	// ErrNonceMismatch is returned when the embedded nonce is absent from the
	// store or differs from the one on record
	ErrNonceMismatch = errors.New("nonce mismatch")

	// ErrInvalidSignature is returned when a signature does not recover to the
	// claimed address
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrChallengeExpired is returned when a challenge is outside its validity window
	ErrChallengeExpired = errors.New("challenge expired")

	// ErrInvalidCredential is returned when a session token fails integrity checks
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrCredentialExpired is returned when a session token is past its expiry
	ErrCredentialExpired = errors.New("credential expired")

	// ErrAlreadyClaimed is returned when the address has already used the faucet
	ErrAlreadyClaimed = errors.New("address has already claimed")

	// ErrExternalService is returned when the chain or another upstream fails
	ErrExternalService = errors.New("external service error")

	// ErrStoreOperationFailed is returned when a nonce store operation fails
	ErrStoreOperationFailed = errors.New("store operation failed")
)

// IsAuthFailure reports whether err belongs to the sign-in failures that are
// reported to clients with one generic message.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrInvalidChallenge) ||
		errors.Is(err, ErrNonceMismatch) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrChallengeExpired)
}
