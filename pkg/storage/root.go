package storage

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"regexp"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

const (
	// RootPrefix is the URI scheme accepted in front of a root identifier.
	RootPrefix = "0g://"
	// IpfsPrefix is accepted for roots copied from IPFS tooling.
	IpfsPrefix = "ipfs://"
)

var rootChars = regexp.MustCompile("[^a-zA-Z0-9]")

// Root is a content-derived identifier: a CIDv1 with the raw codec and a
// sha2-256 multihash over the exact bytes. Identical bytes always yield the
// same Root.
type Root struct {
	c cid.Cid
}

// String returns the base32 CID form (e.g. "bafkrei...").
func (r Root) String() string { return r.c.String() }

// Cid returns the underlying CID.
func (r Root) Cid() cid.Cid { return r.c }

// Defined reports whether r holds a value.
func (r Root) Defined() bool { return r.c.Defined() }

// Digest returns the 32-byte sha2-256 digest that the root commits to. It is
// the value submitted on-chain.
func (r Root) Digest() [32]byte {
	var out [32]byte
	dec, err := multihash.Decode(r.c.Hash())
	if err == nil {
		copy(out[:], dec.Digest)
	}
	return out
}

// ParseRoot accepts a root with or without a 0g:// or ipfs:// prefix and
// validates that it is a raw sha2-256 CID.
func ParseRoot(s string) (Root, error) {
	clean := formatRoot(s)
	if clean == "" {
		return Root{}, fmt.Errorf("%w: empty", ErrInvalidRoot)
	}
	c, err := cid.Decode(clean)
	if err != nil {
		return Root{}, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if c.Prefix().MhType != multihash.SHA2_256 {
		return Root{}, fmt.Errorf("%w: unsupported hash function %d", ErrInvalidRoot, c.Prefix().MhType)
	}
	return Root{c: c}, nil
}

// RootOf computes the root of data.
func RootOf(data []byte) (Root, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return Root{}, err
	}
	return Root{c: cid.NewCidV1(cid.Raw, sum)}, nil
}

// RootOfReader streams r and computes its root along with the byte count.
func RootOfReader(r io.Reader) (Root, int64, error) {
	h := NewRootHasher()
	n, err := io.Copy(h, r)
	if err != nil {
		return Root{}, n, err
	}
	root, err := h.Root()
	return root, n, err
}

// RootHasher computes a Root incrementally. It is an io.Writer so it can sit
// behind io.MultiWriter while content is being persisted.
type RootHasher struct {
	h hash.Hash
}

// NewRootHasher returns an empty hasher.
func NewRootHasher() *RootHasher {
	return &RootHasher{h: sha256.New()}
}

func (w *RootHasher) Write(p []byte) (int, error) { return w.h.Write(p) }

// Root returns the root of everything written so far.
func (w *RootHasher) Root() (Root, error) {
	mh, err := multihash.Encode(w.h.Sum(nil), multihash.SHA2_256)
	if err != nil {
		return Root{}, err
	}
	return Root{c: cid.NewCidV1(cid.Raw, mh)}, nil
}

// Verify returns ErrIntegrityVerificationFailed when the bytes written do not
// hash to want.
func (w *RootHasher) Verify(want Root) error {
	got, err := w.Root()
	if err != nil {
		return err
	}
	if !got.c.Equals(want.c) {
		return fmt.Errorf("%w: expected %s, got %s", ErrIntegrityVerificationFailed, want, got)
	}
	return nil
}

// formatRoot strips known URI prefixes and any non-alphanumeric characters.
func formatRoot(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, RootPrefix)
	s = strings.TrimPrefix(s, IpfsPrefix)
	return rootChars.ReplaceAllString(s, "")
}
