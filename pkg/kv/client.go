// Package kv stores and retrieves small values under named streams on the
// storage network. Writes are signed, committed on-chain and pushed to the
// first healthy storage node; reads go to the first healthy KV endpoint.
// A missing key is a normal result (found == false), never an error.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/shamank/zgstore-go/pkg/endpoint"
	"github.com/shamank/zgstore-go/pkg/signer"
	"github.com/shamank/zgstore-go/pkg/storage"
)

// PutRequest is a signed batch submitted to a node.
type PutRequest struct {
	Batch     []byte
	Signer    common.Address
	Signature []byte
	// TxHash is the commitment transaction, empty when the node issues its own receipt.
	TxHash string
}

// Node is a connected KV-capable endpoint.
type Node interface {
	endpoint.Handle
	PutKV(ctx context.Context, req PutRequest) (txHash string, err error)
	GetKV(ctx context.Context, stream common.Hash, key []byte) (value []byte, found bool, err error)
}

// Options configures a Client.
type Options struct {
	// StreamID names the stream used by StoreTransaction and WalletForTransaction.
	StreamID string
	// WriteTimeout bounds a whole Put, commitment included. Zero means none.
	WriteTimeout time.Duration
	// ReadTimeout bounds a whole Get. Zero means none.
	ReadTimeout time.Duration
	// Observer, when set, is notified of every phase transition.
	Observer storage.Observer
}

// Client writes through storage nodes and reads through KV endpoints.
type Client struct {
	writers   *endpoint.Selector[Node]
	readers   *endpoint.Selector[Node]
	cred      *signer.Credential
	committer storage.Committer
	opts      Options
	now       func() time.Time
}

// NewClient builds a Client. readers may equal writers when the same nodes
// serve both. cred may be nil for a read-only client.
func NewClient(writers, readers *endpoint.Selector[Node], cred *signer.Credential, committer storage.Committer, opts Options) (*Client, error) {
	if writers == nil || readers == nil {
		return nil, errors.New("kv: writer and reader selectors are required")
	}
	if strings.TrimSpace(opts.StreamID) == "" {
		return nil, errors.New("kv: stream id is required")
	}
	return &Client{
		writers:   writers,
		readers:   readers,
		cred:      cred,
		committer: committer,
		opts:      opts,
		now:       time.Now,
	}, nil
}

// Put writes value under key in stream and returns the commit transaction
// hash. A zero-length value is stored as such. Concurrent writers to the same
// key race; the last commit observed by the network wins.
func (c *Client) Put(ctx context.Context, stream string, key, value []byte) (string, error) {
	ctx, cancel := withTimeout(ctx, c.opts.WriteTimeout)
	defer cancel()

	tr := storage.NewTracker("kv-put", c.opts.Observer)
	if len(key) == 0 {
		return "", tr.Fail(ErrEmptyKey)
	}
	if c.cred == nil {
		return "", tr.Fail(storage.ErrNoCredential)
	}

	tr.Enter(storage.PhaseSelectingEndpoint)
	node, url, err := c.writers.Select(ctx)
	if err != nil {
		return "", tr.Fail(err)
	}
	defer closeNode(node, url)
	tr.SetEndpoint(url)

	tr.Enter(storage.PhaseAuthorizing)
	encoded, err := EncodeBatch(&Batch{
		Version:  BatchVersion,
		StreamID: StreamID(stream).Bytes(),
		Writes:   []Write{{Key: key, Value: value}},
		Nonce:    uint64(c.now().UnixNano()),
	})
	if err != nil {
		return "", tr.Fail(err)
	}
	root := BatchRoot(encoded)
	sig, err := c.cred.Sign(root[:])
	if err != nil {
		return "", tr.Fail(fmt.Errorf("sign batch: %w", err))
	}

	tr.Enter(storage.PhaseTransmitting)
	var txHash string
	if c.committer != nil {
		tx, err := c.committer.Commit(ctx, c.cred, root, encoded)
		if err != nil {
			return "", tr.Fail(fmt.Errorf("%w: %w", storage.ErrUploadRejected, err))
		}
		txHash = tx.Hex()
	}
	ack, err := node.PutKV(ctx, PutRequest{
		Batch:     encoded,
		Signer:    c.cred.Address(),
		Signature: sig,
		TxHash:    txHash,
	})
	if err != nil {
		if !errors.Is(err, storage.ErrUploadRejected) {
			err = fmt.Errorf("%w: %w", storage.ErrUploadRejected, err)
		}
		return "", tr.Fail(err)
	}
	if txHash == "" {
		txHash = ack
	}
	tr.Commit()
	zap.L().Info("Stored value in KV stream",
		zap.String("stream", stream),
		zap.String("tx", txHash),
		zap.String("endpoint", url))
	return txHash, nil
}

// Get returns the value stored under key in stream. found is false when the
// key has never been written; that is not an error.
func (c *Client) Get(ctx context.Context, stream string, key []byte) (value []byte, found bool, err error) {
	ctx, cancel := withTimeout(ctx, c.opts.ReadTimeout)
	defer cancel()

	tr := storage.NewTracker("kv-get", c.opts.Observer)
	if len(key) == 0 {
		return nil, false, tr.Fail(ErrEmptyKey)
	}

	tr.Enter(storage.PhaseSelectingEndpoint)
	node, url, err := c.readers.Select(ctx)
	if err != nil {
		return nil, false, tr.Fail(err)
	}
	defer closeNode(node, url)
	tr.SetEndpoint(url)

	tr.Enter(storage.PhaseTransmitting)
	value, found, err = node.GetKV(ctx, StreamID(stream), key)
	if err != nil {
		return nil, false, tr.Fail(err)
	}
	tr.Commit()
	zap.L().Debug("Read KV stream",
		zap.String("stream", stream),
		zap.Bool("found", found),
		zap.String("endpoint", url))
	return value, found, nil
}

// StoreTransaction maps a transaction hash to a wallet address in the
// configured stream and returns the commit transaction hash.
func (c *Client) StoreTransaction(ctx context.Context, txHash, wallet string) (string, error) {
	txHash, wallet = strings.TrimSpace(txHash), strings.TrimSpace(wallet)
	if txHash == "" || wallet == "" {
		return "", fmt.Errorf("%w: transaction hash and wallet address are required", storage.ErrInvalidArgument)
	}
	return c.Put(ctx, c.opts.StreamID, []byte(txHash), []byte(wallet))
}

// WalletForTransaction looks up the wallet stored for txHash.
func (c *Client) WalletForTransaction(ctx context.Context, txHash string) (string, bool, error) {
	txHash = strings.TrimSpace(txHash)
	if txHash == "" {
		return "", false, fmt.Errorf("%w: transaction hash is required", storage.ErrInvalidArgument)
	}
	v, found, err := c.Get(ctx, c.opts.StreamID, []byte(txHash))
	if err != nil || !found {
		return "", false, err
	}
	return string(v), true, nil
}

func closeNode(n Node, url string) {
	if err := n.Close(); err != nil {
		zap.L().Debug("failed to close kv node", zap.String("endpoint", url), zap.Error(err))
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
