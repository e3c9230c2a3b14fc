package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/shamank/zgstore-go/pkg/endpoint"
	"github.com/shamank/zgstore-go/pkg/signer"
)

// ErrNoCredential is returned by write operations on a read-only client.
var ErrNoCredential = fmt.Errorf("%w: no signing credential configured", signer.ErrInvalidCredentialFormat)

// UploadRequest describes content being submitted to a storage node.
type UploadRequest struct {
	Root      Root
	Size      int64
	Signer    common.Address
	Signature []byte
	// TxHash is the commitment transaction, empty when the node issues its own receipt.
	TxHash string
}

// Receipt is a node's acknowledgement of a stored upload.
type Receipt struct {
	Root   string
	TxHash string
}

// Node is a connected storage endpoint. Implementations verify uploaded
// content against the declared root before acknowledging it, and report an
// unknown root on download with ErrNotFound.
type Node interface {
	endpoint.Handle
	Upload(ctx context.Context, req UploadRequest, content io.Reader) (Receipt, error)
	Download(ctx context.Context, root Root, w io.Writer) error
}

// Committer submits the network commitment for a root and waits until it is
// confirmed.
type Committer interface {
	Commit(ctx context.Context, cred *signer.Credential, root [32]byte, data []byte) (common.Hash, error)
}

// UploadResult is returned by a successful upload.
type UploadResult struct {
	RootHash string `json:"rootHash"`
	TxHash   string `json:"txHash"`
}

// Options configures a Client.
type Options struct {
	// TempDir holds scoped temporary files. Defaults to os.TempDir().
	TempDir string
	// UploadTimeout bounds a whole upload, commitment included. Zero means none.
	UploadTimeout time.Duration
	// DownloadTimeout bounds a whole download. Zero means none.
	DownloadTimeout time.Duration
	// Observer, when set, is notified of every phase transition.
	Observer Observer
}

// Client uploads and downloads content through the first healthy node.
type Client struct {
	nodes     *endpoint.Selector[Node]
	cred      *signer.Credential
	committer Committer
	opts      Options
}

// NewClient builds a Client. cred may be nil for a read-only client;
// committer may be nil when nodes issue their own receipts.
func NewClient(nodes *endpoint.Selector[Node], cred *signer.Credential, committer Committer, opts Options) (*Client, error) {
	if nodes == nil {
		return nil, errors.New("storage: endpoint selector is required")
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &Client{nodes: nodes, cred: cred, committer: committer, opts: opts}, nil
}

// TempDir returns the directory used for scoped temporary files.
func (c *Client) TempDir() string { return c.opts.TempDir }

// Upload submits the file at path and returns its root and commitment
// transaction. Empty files are rejected with ErrLocalIO. The file is held
// open only while the root is computed and the content is transmitted.
func (c *Client) Upload(ctx context.Context, path string) (UploadResult, error) {
	ctx, cancel := withTimeout(ctx, c.opts.UploadTimeout)
	defer cancel()

	tr := NewTracker("upload", c.opts.Observer)
	f, err := os.Open(path)
	if err != nil {
		return UploadResult{}, tr.Fail(fmt.Errorf("%w: %v", ErrLocalIO, err))
	}
	defer func() {
		if err := f.Close(); err != nil {
			zap.L().Warn("failed to close upload source", zap.String("path", path), zap.Error(err))
		}
	}()

	root, size, err := RootOfReader(f)
	if err != nil {
		return UploadResult{}, tr.Fail(fmt.Errorf("%w: read %s: %v", ErrLocalIO, path, err))
	}
	if size == 0 {
		return UploadResult{}, tr.Fail(fmt.Errorf("%w: %s is empty", ErrLocalIO, path))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return UploadResult{}, tr.Fail(fmt.Errorf("%w: rewind %s: %v", ErrLocalIO, path, err))
	}
	return c.upload(ctx, tr, root, size, f)
}

// UploadBytes writes data to a scoped temporary file and uploads it. The
// temporary file is removed before UploadBytes returns.
func (c *Client) UploadBytes(ctx context.Context, data []byte, name string) (UploadResult, error) {
	s, err := newScratch(c.opts.TempDir, name)
	if err != nil {
		return UploadResult{}, err
	}
	defer s.release()
	if err := s.write(data); err != nil {
		return UploadResult{}, err
	}
	return c.Upload(ctx, s.path)
}

func (c *Client) upload(ctx context.Context, tr *Tracker, root Root, size int64, content io.Reader) (UploadResult, error) {
	if c.cred == nil {
		return UploadResult{}, tr.Fail(ErrNoCredential)
	}

	tr.Enter(PhaseSelectingEndpoint)
	node, url, err := c.nodes.Select(ctx)
	if err != nil {
		return UploadResult{}, tr.Fail(err)
	}
	defer closeNode(node, url)
	tr.SetEndpoint(url)

	tr.Enter(PhaseAuthorizing)
	digest := root.Digest()
	sig, err := c.cred.Sign(digest[:])
	if err != nil {
		return UploadResult{}, tr.Fail(fmt.Errorf("sign root: %w", err))
	}

	tr.Enter(PhaseTransmitting)
	var txHash string
	if c.committer != nil {
		tx, err := c.committer.Commit(ctx, c.cred, digest, sig)
		if err != nil {
			return UploadResult{}, tr.Fail(rejected(err))
		}
		txHash = tx.Hex()
	}
	rcpt, err := node.Upload(ctx, UploadRequest{
		Root:      root,
		Size:      size,
		Signer:    c.cred.Address(),
		Signature: sig,
		TxHash:    txHash,
	}, content)
	if err != nil {
		return UploadResult{}, tr.Fail(rejected(err))
	}
	if rcpt.Root != root.String() {
		return UploadResult{}, tr.Fail(fmt.Errorf("%w: node acknowledged root %s, expected %s", ErrUploadRejected, rcpt.Root, root))
	}
	if txHash == "" {
		txHash = rcpt.TxHash
	}
	tr.Commit()

	zap.L().Info("Uploaded to storage network",
		zap.String("root", root.String()),
		zap.String("tx", txHash),
		zap.Int64("size", size),
		zap.String("endpoint", url))
	return UploadResult{RootHash: root.String(), TxHash: txHash}, nil
}

// Download fetches the content identified by root into outPath. Bytes are
// streamed into a hidden sibling file, verified against root and only then
// renamed onto outPath; on any failure nothing is left at either path.
// Reads need no credential, so a download moves from SelectingEndpoint
// straight to Transmitting.
func (c *Client) Download(ctx context.Context, root, outPath string) error {
	ctx, cancel := withTimeout(ctx, c.opts.DownloadTimeout)
	defer cancel()

	tr := NewTracker("download", c.opts.Observer)
	r, err := ParseRoot(root)
	if err != nil {
		return tr.Fail(err)
	}

	tr.Enter(PhaseSelectingEndpoint)
	node, url, err := c.nodes.Select(ctx)
	if err != nil {
		return tr.Fail(err)
	}
	defer closeNode(node, url)
	tr.SetEndpoint(url)

	tr.Enter(PhaseTransmitting)
	if err := fetchVerified(ctx, node, r, outPath); err != nil {
		return tr.Fail(err)
	}
	tr.Commit()
	zap.L().Info("Downloaded from storage network",
		zap.String("root", r.String()),
		zap.String("path", outPath),
		zap.String("endpoint", url))
	return nil
}

func fetchVerified(ctx context.Context, node Node, root Root, outPath string) (err error) {
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrLocalIO, err)
		}
	}
	part := partialPath(outPath)
	f, err := os.OpenFile(part, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocalIO, err)
	}
	defer func() {
		if err != nil {
			removeQuietly(part)
		}
	}()

	h := NewRootHasher()
	err = node.Download(ctx, root, io.MultiWriter(localWriter{f}, h))
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w: %v", ErrLocalIO, cerr)
	}
	if err != nil {
		return err
	}
	if err = h.Verify(root); err != nil {
		return err
	}
	if err = os.Rename(part, outPath); err != nil {
		return fmt.Errorf("%w: %v", ErrLocalIO, err)
	}
	return nil
}

// localWriter tags write failures as local so they are not mistaken for
// transport errors.
type localWriter struct{ w io.Writer }

func (l localWriter) Write(p []byte) (int, error) {
	n, err := l.w.Write(p)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrLocalIO, err)
	}
	return n, err
}

// rejected classifies a transmit-phase failure. Errors that already carry a
// storage sentinel keep it; everything else, timeouts included, is a rejection.
func rejected(err error) error {
	switch {
	case errors.Is(err, ErrUploadRejected), errors.Is(err, ErrLocalIO):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUploadRejected, err)
	}
}

func closeNode(n Node, url string) {
	if err := n.Close(); err != nil {
		zap.L().Debug("failed to close storage node", zap.String("endpoint", url), zap.Error(err))
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
