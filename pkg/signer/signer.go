// Package signer turns a configured hex secret into an immutable signing
// credential. The credential authorizes storage writes: it signs upload and
// KV payloads (EIP-191 personal-sign) and builds transactors for the Flow
// commitment transaction. Validation is eager so that misconfiguration is
// reported at construction time, never on first network use.
package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidCredentialFormat is returned when the secret is missing, a known
// placeholder, or not exactly 64 hex characters after normalization.
var ErrInvalidCredentialFormat = errors.New("signer: invalid credential format")

// HashPrefix32Bytes is the standard Ethereum personal-sign prefix for 32-byte
// messages: "\x19Ethereum Signed Message:\n32".
var HashPrefix32Bytes = []byte("\x19Ethereum Signed Message:\n32")

// placeholders are values shipped in examples and .env templates.
var placeholders = map[string]struct{}{
	"your_private_key":      {},
	"your-private-key":      {},
	"your_private_key_here": {},
	"private_key":           {},
	"changeme":              {},
}

// Credential is an immutable signing credential. It is safe for concurrent
// use by any number of in-flight operations.
type Credential struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// Normalize trims whitespace, strips an optional 0x/0X prefix and checks that
// exactly 64 hex characters remain. It returns the bare lowercase hex string.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: private key is not set", ErrInvalidCredentialFormat)
	}
	if _, ok := placeholders[strings.ToLower(trimmed)]; ok {
		return "", fmt.Errorf("%w: private key is a placeholder value", ErrInvalidCredentialFormat)
	}
	if len(trimmed) >= 2 && trimmed[0] == '0' && (trimmed[1] == 'x' || trimmed[1] == 'X') {
		trimmed = trimmed[2:]
	}
	if len(trimmed) != 64 {
		return "", fmt.Errorf("%w: expected 64 hex chars (with or without 0x), got %d", ErrInvalidCredentialFormat, len(trimmed))
	}
	for _, r := range trimmed {
		if !isHex(r) {
			return "", fmt.Errorf("%w: non-hex character %q", ErrInvalidCredentialFormat, r)
		}
	}
	return strings.ToLower(trimmed), nil
}

// New validates raw and derives the credential. Any failure wraps
// ErrInvalidCredentialFormat; a partially valid key is never accepted.
func New(raw string) (*Credential, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	key, err := crypto.HexToECDSA(normalized)
	if err != nil {
		// Out-of-range scalars (zero, >= curve order) are 64 hex chars but still unusable.
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentialFormat, err)
	}
	return &Credential{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the account address derived from the key.
func (c *Credential) Address() common.Address {
	return c.address
}

// PrivateKey exposes the ECDSA key for libraries that need it directly.
func (c *Credential) PrivateKey() *ecdsa.PrivateKey {
	return c.key
}

// Sign produces an Ethereum-compatible personal-sign signature over message:
// keccak256("\x19Ethereum Signed Message:\n32" || keccak256(message)).
// The result is the 65-byte R||S||V form.
func (c *Credential) Sign(message []byte) ([]byte, error) {
	return crypto.Sign(PersonalHash(message), c.key)
}

// TransactOpts creates a transactor bound to chainID.
func (c *Credential) TransactOpts(chainID *big.Int) (*bind.TransactOpts, error) {
	if chainID == nil {
		return nil, errors.New("signer: chain id is required")
	}
	return bind.NewKeyedTransactorWithChainID(c.key, chainID)
}

// PersonalHash returns the digest signed by Credential.Sign.
func PersonalHash(message []byte) []byte {
	return crypto.Keccak256(HashPrefix32Bytes, crypto.Keccak256(message))
}

// RecoverAddress returns the address that produced signature over message
// with Credential.Sign.
func RecoverAddress(message, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signer: signature must be %d bytes, got %d", crypto.SignatureLength, len(signature))
	}
	pub, err := crypto.SigToPub(PersonalHash(message), signature)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func isHex(r rune) bool {
	return ('0' <= r && r <= '9') || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
}
