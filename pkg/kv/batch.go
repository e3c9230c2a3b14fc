package kv

import (
	"errors"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// BatchVersion is the encoding version written into every batch.
const BatchVersion uint32 = 1

// ErrEmptyKey is returned when a write has a zero-length key.
var ErrEmptyKey = errors.New("kv: key must not be empty")

// Write is a single key/value assignment.
type Write struct {
	Key   []byte `cramberry:"1"`
	Value []byte `cramberry:"2"`
}

// Batch is the unit signed by the writer and committed on-chain. Its cramberry
// encoding is deterministic, so the signature covers exactly these bytes.
type Batch struct {
	Version  uint32  `cramberry:"1"`
	StreamID []byte  `cramberry:"2"`
	Writes   []Write `cramberry:"3"`
	// Nonce separates otherwise identical batches (unix nanoseconds).
	Nonce uint64 `cramberry:"4"`
}

// StreamID derives the 32-byte stream identifier from a stream name.
func StreamID(name string) common.Hash {
	return crypto.Keccak256Hash([]byte(name))
}

// Stream returns the batch's stream identifier.
func (b *Batch) Stream() common.Hash {
	return common.BytesToHash(b.StreamID)
}

// Validate checks the batch shape.
func (b *Batch) Validate() error {
	if b.Version != BatchVersion {
		return fmt.Errorf("kv: unsupported batch version %d", b.Version)
	}
	if len(b.StreamID) != common.HashLength {
		return fmt.Errorf("kv: stream id must be %d bytes, got %d", common.HashLength, len(b.StreamID))
	}
	if len(b.Writes) == 0 {
		return errors.New("kv: batch has no writes")
	}
	for _, w := range b.Writes {
		if len(w.Key) == 0 {
			return ErrEmptyKey
		}
	}
	return nil
}

// EncodeBatch validates and serializes b.
func EncodeBatch(b *Batch) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	data, err := cramberry.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("cramberry marshal: %w", err)
	}
	return data, nil
}

// DecodeBatch parses and validates an encoded batch.
func DecodeBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := cramberry.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("cramberry unmarshal: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// BatchRoot is the 32-byte digest committed on-chain for an encoded batch.
func BatchRoot(encoded []byte) [32]byte {
	return crypto.Keccak256Hash(encoded)
}
