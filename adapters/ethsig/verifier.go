// Package ethsig verifies and produces EIP-191 personal_sign signatures.
package ethsig

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/faucet/core"
	"github.com/layer-3/faucet/ports"
)

const signatureLength = crypto.SignatureLength

// Verifier implements the SignatureVerifier interface for Ethereum accounts
type Verifier struct{}

// NewVerifier creates a new signature verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

var _ ports.SignatureVerifier = (*Verifier)(nil)

// VerifySignature checks that signature over message recovers to address
func (v *Verifier) VerifySignature(message, signatureStr, addressStr string) error {
	if !common.IsHexAddress(addressStr) {
		return fmt.Errorf("invalid address %q: %w", addressStr, core.ErrInvalidSignature)
	}

	recovered, err := RecoverAddress(message, signatureStr)
	if err != nil {
		return err
	}

	if recovered != common.HexToAddress(addressStr) {
		return fmt.Errorf("signer %s does not match %s: %w", recovered.Hex(), addressStr, core.ErrInvalidSignature)
	}

	return nil
}

// RecoverAddress returns the account that produced signature over message
func RecoverAddress(message, signatureStr string) (common.Address, error) {
	sig, err := hexutil.Decode(signatureStr)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", core.ErrInvalidSignature)
	}
	if len(sig) != signatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes: %w", signatureLength, core.ErrInvalidSignature)
	}

	// Wallets emit v as 27/28, go-ethereum expects 0/1.
	switch sig[crypto.RecoveryIDOffset] {
	case 0, 1:
	case 27, 28:
		sig[crypto.RecoveryIDOffset] -= 27
	default:
		return common.Address{}, fmt.Errorf("invalid recovery id %d: %w", sig[crypto.RecoveryIDOffset], core.ErrInvalidSignature)
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %v: %w", err, core.ErrInvalidSignature)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// Sign produces the signature a wallet would return for personal_sign,
// with v set to 27 or 28.
func Sign(message string, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(sig), nil
}

// Address returns the checksummed address controlled by key
func Address(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}
