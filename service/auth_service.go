package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/layer-3/faucet/core"
	"github.com/layer-3/faucet/ports"
	"go.uber.org/zap"
)

// AuthConfig holds the values every challenge is bound to
type AuthConfig struct {
	Domain       string
	URI          string
	Statement    string
	Version      string
	ChainID      uint64
	ChallengeTTL time.Duration
	SessionTTL   time.Duration
}

// DefaultAuthConfig returns the settings of the Sepolia faucet
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		Domain:       "localhost:3000",
		URI:          "http://localhost:3000",
		Statement:    "Sign in to the Faucet DApp.",
		Version:      core.MessageVersion,
		ChainID:      11155111,
		ChallengeTTL: 5 * time.Minute,
		SessionTTL:   time.Hour,
	}
}

// AuthService handles authentication business logic
type AuthService struct {
	nonces    ports.NonceStore
	verifier  ports.SignatureVerifier
	tokenizer ports.Tokenizer
	eventPub  ports.EventPublisher
	logger    *zap.Logger
	now       func() time.Time

	cfg AuthConfig
}

// AuthOption configures an AuthService
type AuthOption func(*AuthService)

// WithAuthClock sets the time source for challenges and sessions
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		s.now = now
	}
}

// NewAuthService creates a new authentication service
func NewAuthService(
	cfg AuthConfig,
	nonces ports.NonceStore,
	verifier ports.SignatureVerifier,
	tokenizer ports.Tokenizer,
	eventPub ports.EventPublisher,
	logger *zap.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		nonces:    nonces,
		verifier:  verifier,
		tokenizer: tokenizer,
		eventPub:  eventPub,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeAddress validates an Ethereum address and returns its checksummed form
func NormalizeAddress(address string) (string, error) {
	if address == "" {
		return "", fmt.Errorf("address is required: %w", core.ErrValidation)
	}
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid ethereum address %q: %w", address, core.ErrValidation)
	}
	return common.HexToAddress(address).Hex(), nil
}

// CreateChallenge issues a nonce for address and returns the message to sign
func (s *AuthService) CreateChallenge(ctx context.Context, address string) (string, error) {
	address, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}

	nonce, err := s.nonces.Issue(ctx, address, s.cfg.ChallengeTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue nonce: %w", err)
	}

	return s.BuildChallenge(address, nonce).String(), nil
}

// BuildChallenge assembles the challenge for address and nonce under the
// service configuration, valid from now for the challenge TTL.
func (s *AuthService) BuildChallenge(address, nonce string) *core.Challenge {
	now := s.now().UTC()
	version := s.cfg.Version
	if version == "" {
		version = core.MessageVersion
	}
	return &core.Challenge{
		Domain:         s.cfg.Domain,
		Address:        address,
		Statement:      s.cfg.Statement,
		URI:            s.cfg.URI,
		Version:        version,
		ChainID:        s.cfg.ChainID,
		Nonce:          nonce,
		IssuedAt:       now,
		ExpirationTime: now.Add(s.cfg.ChallengeTTL),
	}
}

// Verify checks a signed challenge and returns the authenticated address.
// The nonce is consumed before the signature is checked, so a message can be
// submitted at most once whatever the outcome.
func (s *AuthService) Verify(ctx context.Context, message, signature string) (string, error) {
	challenge, err := core.ParseChallenge(message)
	if err != nil {
		return "", err
	}

	if challenge.Domain != s.cfg.Domain {
		return "", fmt.Errorf("domain %q not served here: %w", challenge.Domain, core.ErrInvalidChallenge)
	}
	if challenge.ChainID != s.cfg.ChainID {
		return "", fmt.Errorf("chain id %d not served here: %w", challenge.ChainID, core.ErrInvalidChallenge)
	}

	address := common.HexToAddress(challenge.Address).Hex()

	consumed, err := s.nonces.Consume(ctx, address, challenge.Nonce)
	if err != nil {
		return "", fmt.Errorf("failed to consume nonce: %w", err)
	}
	if !consumed {
		return "", fmt.Errorf("no matching nonce for %s: %w", address, core.ErrNonceMismatch)
	}

	if err := s.verifier.VerifySignature(message, signature, address); err != nil {
		return "", err
	}

	if err := challenge.CheckTime(s.now()); err != nil {
		return "", err
	}

	return address, nil
}

// SignIn verifies a signed challenge and issues a session token
func (s *AuthService) SignIn(ctx context.Context, message, signature string) (string, string, error) {
	address, err := s.Verify(ctx, message, signature)
	if err != nil {
		s.logger.Info("sign-in rejected", zap.Error(err))
		return "", "", err
	}

	token, session, err := s.IssueSession(address)
	if err != nil {
		return "", "", err
	}

	if err := s.eventPub.PublishSignIn(ctx, address, session.ID); err != nil {
		// The session is already issued; the event is informational.
		s.logger.Warn("failed to publish sign-in event", zap.String("address", address), zap.Error(err))
	}

	return token, address, nil
}

// IssueSession mints a session token for an already verified address
func (s *AuthService) IssueSession(address string) (string, *core.Session, error) {
	// Token timestamps carry whole seconds.
	now := s.now().Truncate(time.Second)
	session := &core.Session{
		ID:        uuid.New().String(),
		Address:   address,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create session token: %w", err)
	}

	return token, session, nil
}

// ValidateSessionToken checks a bearer token and returns its session
func (s *AuthService) ValidateSessionToken(ctx context.Context, token string) (*core.Session, error) {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, err
	}

	if s.now().After(session.ExpiresAt) {
		return nil, core.ErrCredentialExpired
	}

	return session, nil
}
