package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/faucet/core"
	"github.com/layer-3/faucet/ports"
)

// AudienceSession is the audience every session token is issued for
const AudienceSession = "session:access"

// expiryLeeway lets the parser accept the expiry second itself. The inclusive
// bound is enforced in TokenToSession.
const expiryLeeway = time.Second

// JWTTokenizer implements the Tokenizer interface using HS256 JWTs
type JWTTokenizer struct {
	secret []byte
	now    func() time.Time
}

// Option configures a JWTTokenizer
type Option func(*JWTTokenizer)

// WithClock sets the time source used when validating expiry
func WithClock(now func() time.Time) Option {
	return func(j *JWTTokenizer) {
		j.now = now
	}
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(secret []byte, opts ...Option) *JWTTokenizer {
	j := &JWTTokenizer{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)

// SessionToToken converts a Session to a signed JWT
func (j *JWTTokenizer) SessionToToken(session *core.Session) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Address,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		Address: session.Address,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signedToken, nil
}

// TokenToSession parses a JWT and returns the session it asserts
func (j *JWTTokenizer) TokenToSession(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	},
		jwt.WithAudience(AudienceSession),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(j.now),
		jwt.WithLeeway(expiryLeeway),
		jwt.WithStrictDecoding(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("failed to parse token: %v: %w", err, core.ErrCredentialExpired)
		}
		return nil, fmt.Errorf("failed to parse token: %v: %w", err, core.ErrInvalidCredential)
	}

	if !token.Valid {
		return nil, core.ErrInvalidCredential
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type: %w", core.ErrInvalidCredential)
	}

	// Valid up to and including the expiry instant.
	if j.now().After(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("token expired at %s: %w", claims.ExpiresAt.Time, core.ErrCredentialExpired)
	}

	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("missing issued at: %w", core.ErrInvalidCredential)
	}

	if claims.Subject == "" || claims.Address != claims.Subject {
		return nil, fmt.Errorf("subject does not match address: %w", core.ErrInvalidCredential)
	}

	session := &core.Session{
		ID:        claims.ID,
		Address:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}

	return session, nil
}
