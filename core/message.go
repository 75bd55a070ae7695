package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EIP-4361 message layout.
const (
	headerSuffix = " wants you to sign in with your Ethereum account:"

	tagURI            = "URI: "
	tagVersion        = "Version: "
	tagChainID        = "Chain ID: "
	tagNonce          = "Nonce: "
	tagIssuedAt       = "Issued At: "
	tagExpirationTime = "Expiration Time: "
	tagNotBefore      = "Not Before: "
	tagRequestID      = "Request ID: "
	tagResources      = "Resources:"
	resourcePrefix    = "- "

	// MessageVersion is the only version EIP-4361 defines
	MessageVersion = "1"

	// MinNonceLength is the shortest nonce EIP-4361 allows
	MinNonceLength = 8

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// FormatTimestamp renders t the way the message format expects.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// String serializes the challenge into the text the wallet signs.
func (c *Challenge) String() string {
	var b strings.Builder

	b.WriteString(c.Domain)
	b.WriteString(headerSuffix)
	b.WriteByte('\n')
	b.WriteString(c.Address)
	b.WriteString("\n\n")
	if c.Statement != "" {
		b.WriteString(c.Statement)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	b.WriteString(tagURI + c.URI + "\n")
	b.WriteString(tagVersion + c.Version + "\n")
	b.WriteString(tagChainID + strconv.FormatUint(c.ChainID, 10) + "\n")
	b.WriteString(tagNonce + c.Nonce + "\n")
	b.WriteString(tagIssuedAt + FormatTimestamp(c.IssuedAt))

	if !c.ExpirationTime.IsZero() {
		b.WriteString("\n" + tagExpirationTime + FormatTimestamp(c.ExpirationTime))
	}
	if !c.NotBefore.IsZero() {
		b.WriteString("\n" + tagNotBefore + FormatTimestamp(c.NotBefore))
	}
	if c.RequestID != "" {
		b.WriteString("\n" + tagRequestID + c.RequestID)
	}
	if len(c.Resources) > 0 {
		b.WriteString("\n" + tagResources)
		for _, r := range c.Resources {
			b.WriteString("\n" + resourcePrefix + r)
		}
	}

	return b.String()
}

// CheckTime verifies that now falls inside the challenge validity window.
func (c *Challenge) CheckTime(now time.Time) error {
	if !c.ExpirationTime.IsZero() && !now.Before(c.ExpirationTime) {
		return fmt.Errorf("expired at %s: %w", FormatTimestamp(c.ExpirationTime), ErrChallengeExpired)
	}
	if !c.NotBefore.IsZero() && now.Before(c.NotBefore) {
		return fmt.Errorf("not valid before %s: %w", FormatTimestamp(c.NotBefore), ErrChallengeExpired)
	}
	return nil
}

// ParseChallenge parses text produced by Challenge.String or any compliant
// EIP-4361 client. Errors wrap ErrInvalidChallenge.
func ParseChallenge(text string) (*Challenge, error) {
	p := &messageParser{lines: strings.Split(text, "\n")}
	c, err := p.parse()
	if err != nil {
		if p.pos < len(p.lines) {
			return nil, fmt.Errorf("line %d: %v: %w", p.pos+1, err, ErrInvalidChallenge)
		}
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidChallenge)
	}
	return c, nil
}

type messageParser struct {
	lines []string
	pos   int
}

func (p *messageParser) next() (string, bool) {
	if p.pos >= len(p.lines) {
		return "", false
	}
	line := p.lines[p.pos]
	p.pos++
	return line, true
}

func (p *messageParser) peek() (string, bool) {
	if p.pos >= len(p.lines) {
		return "", false
	}
	return p.lines[p.pos], true
}

func (p *messageParser) expectEmpty() error {
	line, ok := p.next()
	if !ok {
		return fmt.Errorf("unexpected end of message")
	}
	if line != "" {
		p.pos--
		return fmt.Errorf("expected empty line")
	}
	return nil
}

func (p *messageParser) required(tag string) (string, error) {
	line, ok := p.next()
	if !ok {
		return "", fmt.Errorf("missing %q", strings.TrimSpace(tag))
	}
	if !strings.HasPrefix(line, tag) {
		p.pos--
		return "", fmt.Errorf("expected %q", strings.TrimSpace(tag))
	}
	return strings.TrimPrefix(line, tag), nil
}

func (p *messageParser) optional(tag string) (string, bool) {
	line, ok := p.peek()
	if !ok || !strings.HasPrefix(line, tag) {
		return "", false
	}
	p.pos++
	return strings.TrimPrefix(line, tag), true
}

func (p *messageParser) parse() (*Challenge, error) {
	c := &Challenge{}

	header, ok := p.next()
	if !ok || !strings.HasSuffix(header, headerSuffix) {
		p.pos = 0
		return nil, fmt.Errorf("missing header")
	}
	c.Domain = strings.TrimSuffix(header, headerSuffix)
	if c.Domain == "" {
		p.pos = 0
		return nil, fmt.Errorf("empty domain")
	}

	address, ok := p.next()
	if !ok {
		return nil, fmt.Errorf("missing address")
	}
	if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		p.pos--
		return nil, fmt.Errorf("invalid address %q", address)
	}
	c.Address = address

	if err := p.expectEmpty(); err != nil {
		return nil, err
	}
	if line, ok := p.peek(); ok && line != "" {
		c.Statement = line
		p.pos++
	}
	if err := p.expectEmpty(); err != nil {
		return nil, err
	}

	var err error
	if c.URI, err = p.required(tagURI); err != nil {
		return nil, err
	}
	if c.URI == "" {
		p.pos--
		return nil, fmt.Errorf("empty uri")
	}

	if c.Version, err = p.required(tagVersion); err != nil {
		return nil, err
	}
	if c.Version != MessageVersion {
		p.pos--
		return nil, fmt.Errorf("unsupported version %q", c.Version)
	}

	chainID, err := p.required(tagChainID)
	if err != nil {
		return nil, err
	}
	if c.ChainID, err = strconv.ParseUint(chainID, 10, 64); err != nil {
		p.pos--
		return nil, fmt.Errorf("invalid chain id %q", chainID)
	}

	if c.Nonce, err = p.required(tagNonce); err != nil {
		return nil, err
	}
	if !validNonce(c.Nonce) {
		p.pos--
		return nil, fmt.Errorf("invalid nonce")
	}

	issuedAt, err := p.required(tagIssuedAt)
	if err != nil {
		return nil, err
	}
	if c.IssuedAt, err = parseTimestamp(issuedAt); err != nil {
		p.pos--
		return nil, err
	}

	if v, ok := p.optional(tagExpirationTime); ok {
		if c.ExpirationTime, err = parseTimestamp(v); err != nil {
			p.pos--
			return nil, err
		}
	}
	if v, ok := p.optional(tagNotBefore); ok {
		if c.NotBefore, err = parseTimestamp(v); err != nil {
			p.pos--
			return nil, err
		}
	}
	if v, ok := p.optional(tagRequestID); ok {
		c.RequestID = v
	}
	if line, ok := p.peek(); ok && line == tagResources {
		p.pos++
		for {
			r, ok := p.optional(resourcePrefix)
			if !ok {
				break
			}
			c.Resources = append(c.Resources, r)
		}
	}

	if p.pos != len(p.lines) {
		return nil, fmt.Errorf("unexpected content")
	}
	return c, nil
}

func parseTimestamp(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
	}
	return t, nil
}

func validNonce(n string) bool {
	if len(n) < MinNonceLength {
		return false
	}
	for _, r := range n {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}
