package core

import "time"

// Challenge represents a Sign-In with Ethereum message
type Challenge struct {
	Domain         string    // RFC 3986 authority requesting the signature
	Address        string    // Ethereum address of the user
	Statement      string    // Human-readable assertion, optional
	URI            string    // Subject of the signing
	Version        string    // Message version, always "1"
	ChainID        uint64    // EIP-155 chain id the session is bound to
	Nonce          string    // Random nonce issued by the server
	IssuedAt       time.Time // When the challenge was created
	ExpirationTime time.Time // Zero if the challenge never expires
	NotBefore      time.Time // Zero if valid immediately
	RequestID      string
	Resources      []string
}

// Session represents an authenticated user session
type Session struct {
	ID        string    // Unique session identifier, the JWT ID
	Address   string    // Ethereum address of the user
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session expires
}

// FaucetStatus is a snapshot of the faucet contract as seen by one address
type FaucetStatus struct {
	HasClaimed   bool
	Balance      string // Token balance formatted with Decimals
	Users        []string
	FaucetAmount string // Raw amount handed out per claim, base units
	Decimals     uint8
}
