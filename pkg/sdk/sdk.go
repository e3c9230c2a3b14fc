package sdk

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/shamank/zgstore-go/pkg/blockchain"
	"github.com/shamank/zgstore-go/pkg/config"
	"github.com/shamank/zgstore-go/pkg/endpoint"
	"github.com/shamank/zgstore-go/pkg/kv"
	"github.com/shamank/zgstore-go/pkg/model"
	"github.com/shamank/zgstore-go/pkg/node"
	"github.com/shamank/zgstore-go/pkg/signer"
	"github.com/shamank/zgstore-go/pkg/storage"
)

// Storage is the set of calls served to the HTTP layer and the CLI.
type Storage interface {
	// UploadFile uploads the file at path and returns its root and commit tx.
	UploadFile(ctx context.Context, path string) (storage.UploadResult, error)
	// UploadFileData uploads data received in memory under name.
	UploadFileData(ctx context.Context, data []byte, name string) (storage.UploadResult, error)
	// DownloadFile writes the verified content of root to outPath.
	DownloadFile(ctx context.Context, root, outPath string) error
	// UploadJSONData serializes value and uploads it as fileName.
	UploadJSONData(ctx context.Context, value any, fileName string) (storage.JSONResult, error)
	// DownloadJSONData downloads root and decodes it as JSON.
	DownloadJSONData(ctx context.Context, root, fileName string) (any, error)
	// StoreTransactionInKV maps txHash to wallet in the configured stream.
	StoreTransactionInKV(ctx context.Context, txHash, wallet string) (model.KVStored, error)
	// GetWalletFromTransaction returns the wallet stored for txHash.
	// found is false when the mapping does not exist.
	GetWalletFromTransaction(ctx context.Context, txHash string) (wallet string, found bool, err error)
	// UploadTransactionData archives a vault transaction record.
	UploadTransactionData(ctx context.Context, rec storage.TransactionRecord) (storage.JSONResult, error)
	// DownloadTransactionData retrieves an archived transaction record.
	DownloadTransactionData(ctx context.Context, root string) (storage.TransactionRecord, error)
	// Health probes every configured endpoint.
	Health(ctx context.Context) model.HealthReport
	// Close releases network clients.
	Close()
}

// init configures a default global zap logger for the SDK. Applications may
// replace it with zap.ReplaceGlobals(...) or NewLogger.
func init() {
	logger, err := buildLogger(false)
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
}

func buildLogger(debug bool) (*zap.Logger, error) {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	c := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      debug,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return c.Build()
}

// NewLogger rebuilds the global logger, at debug level when debug is set,
// and returns a function restoring the previous one.
func NewLogger(debug bool) (func(), error) {
	logger, err := buildLogger(debug)
	if err != nil {
		return nil, err
	}
	return zap.ReplaceGlobals(logger), nil
}

// Option customizes New.
type Option func(*options)

type options struct {
	node      node.Options
	committer storage.Committer
	observer  storage.Observer
}

// WithNodeOptions sets the transport options used to dial every endpoint.
func WithNodeOptions(o node.Options) Option {
	return func(opts *options) { opts.node = o }
}

// WithCommitter replaces the on-chain Flow committer.
func WithCommitter(c storage.Committer) Option {
	return func(opts *options) { opts.committer = c }
}

// WithObserver reports every phase transition of every operation.
func WithObserver(o storage.Observer) Option {
	return func(opts *options) { opts.observer = o }
}

// Core is the concrete SDK implementation. It owns the signing credential,
// the endpoint selectors and the optional EVM client.
type Core struct {
	cfg     *config.Config
	cred    *signer.Credential
	evm     *blockchain.EVMClient
	storage *storage.Client
	kv      *kv.Client

	indexers *endpoint.Selector[storage.Node]
	kvRead   *endpoint.Selector[kv.Node]
}

var _ Storage = (*Core)(nil)

// New validates cfg and builds a Core. A missing or malformed private key
// fails here with signer.ErrInvalidCredentialFormat. Unless cfg.LocalCommit
// is set (or WithCommitter is given) the EVM RPC is dialed to commit roots
// through the Flow contract.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.Timeouts = cfg.Timeouts.WithDefaults()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cred, err := signer.New(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		zap.L().Debug("signer address", zap.String("addr", cred.Address().Hex()))
	}

	c := &Core{cfg: cfg, cred: cred}

	committer := o.committer
	if committer == nil && !cfg.LocalCommit {
		dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeouts.Dial)
		defer cancel()
		evm, err := blockchain.InitEvm(dialCtx, cfg.RPCAddr, cfg.FlowContract)
		if err != nil {
			return nil, fmt.Errorf("init ethereum client: %w", err)
		}
		chainID, err := configuredChainID(cfg)
		if err != nil {
			evm.Close()
			return nil, err
		}
		fc, err := blockchain.NewFlowCommitter(dialCtx, evm, chainID, blockchain.CommitterOptions{
			SubmitTimeout: cfg.Timeouts.ChainSubmit,
			ReceiptWait:   cfg.Timeouts.ReceiptWait,
		})
		if err != nil {
			evm.Close()
			return nil, err
		}
		c.evm = evm
		committer = fc
	}

	probe := endpoint.Options{
		ProbeTimeout:  cfg.Timeouts.Probe,
		Concurrent:    cfg.ProbeMode == config.ProbeConcurrent,
		MaxConcurrent: cfg.ProbeConcurrency,
		CacheTTL:      cfg.HealthCacheTTL,
	}
	if c.indexers, err = endpoint.New(cfg.IndexerURLs, node.StorageDialer(o.node), probe); err != nil {
		c.Close()
		return nil, err
	}
	kvWrite, err := endpoint.New(cfg.IndexerURLs, node.KVDialer(o.node), probe)
	if err != nil {
		c.Close()
		return nil, err
	}
	if c.kvRead, err = endpoint.New(cfg.KVURLs, node.KVDialer(o.node), probe); err != nil {
		c.Close()
		return nil, err
	}

	c.storage, err = storage.NewClient(c.indexers, cred, committer, storage.Options{
		TempDir:         cfg.TempDir,
		UploadTimeout:   cfg.Timeouts.Upload,
		DownloadTimeout: cfg.Timeouts.Download,
		Observer:        o.observer,
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	c.kv, err = kv.NewClient(kvWrite, c.kvRead, cred, committer, kv.Options{
		StreamID:     cfg.StreamID,
		WriteTimeout: cfg.Timeouts.KVWrite,
		ReadTimeout:  cfg.Timeouts.KVRead,
		Observer:     o.observer,
	})
	if err != nil {
		c.Close()
		return nil, err
	}

	zap.L().Info("storage client ready",
		zap.Strings("indexers", cfg.IndexerURLs),
		zap.Strings("kv", cfg.KVURLs),
		zap.String("probe_mode", cfg.ProbeMode),
		zap.Bool("local_commit", committer == nil))
	return c, nil
}

func configuredChainID(cfg *config.Config) (*big.Int, error) {
	id, err := cfg.ChainID()
	if err != nil {
		return nil, fmt.Errorf("invalid chain id %q: %w", cfg.Network.ChainID, err)
	}
	return big.NewInt(id), nil
}

// Config returns the validated configuration.
func (c *Core) Config() *config.Config { return c.cfg }

// Address returns the signer address.
func (c *Core) Address() string { return c.cred.Address().Hex() }

// GetEvm returns the EVM client, or nil when commitments are local.
func (c *Core) GetEvm() *blockchain.EVMClient { return c.evm }

// UploadFile uploads the file at path.
func (c *Core) UploadFile(ctx context.Context, path string) (storage.UploadResult, error) {
	return c.storage.Upload(ctx, path)
}

// UploadFileData uploads data through a scoped temporary file named after name.
func (c *Core) UploadFileData(ctx context.Context, data []byte, name string) (storage.UploadResult, error) {
	return c.storage.UploadBytes(ctx, data, name)
}

// DownloadFile writes the verified content of root to outPath.
func (c *Core) DownloadFile(ctx context.Context, root, outPath string) error {
	return c.storage.Download(ctx, root, outPath)
}

// UploadJSONData serializes value and uploads it under fileName.
func (c *Core) UploadJSONData(ctx context.Context, value any, fileName string) (storage.JSONResult, error) {
	return c.storage.UploadJSON(ctx, value, fileName)
}

// DownloadJSONData downloads root and returns the decoded JSON value.
func (c *Core) DownloadJSONData(ctx context.Context, root, fileName string) (any, error) {
	var v any
	if err := c.storage.DownloadJSON(ctx, root, fileName, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// StoreTransactionInKV maps txHash to wallet in the configured stream.
func (c *Core) StoreTransactionInKV(ctx context.Context, txHash, wallet string) (model.KVStored, error) {
	tx, err := c.kv.StoreTransaction(ctx, txHash, wallet)
	if err != nil {
		return model.KVStored{}, err
	}
	return model.KVStored{TxHash: tx}, nil
}

// GetWalletFromTransaction returns the wallet stored for txHash.
func (c *Core) GetWalletFromTransaction(ctx context.Context, txHash string) (string, bool, error) {
	return c.kv.WalletForTransaction(ctx, txHash)
}

// UploadTransactionData archives rec, defaulting its chain id to the configured network.
func (c *Core) UploadTransactionData(ctx context.Context, rec storage.TransactionRecord) (storage.JSONResult, error) {
	if rec.ChainID == 0 {
		if id, err := c.cfg.ChainID(); err == nil {
			rec.ChainID = id
		}
	}
	return c.storage.UploadTransactionRecord(ctx, rec)
}

// DownloadTransactionData retrieves a record stored by UploadTransactionData.
func (c *Core) DownloadTransactionData(ctx context.Context, root string) (storage.TransactionRecord, error) {
	return c.storage.DownloadTransactionRecord(ctx, root)
}

// Close shuts down the Ethereum RPC client, if any. Endpoint connections
// are per-operation and already closed.
func (c *Core) Close() {
	if c.evm != nil {
		c.evm.Close()
		c.evm = nil
	}
}

// IsValidation reports whether err was caused by caller input rather than
// the network.
func IsValidation(err error) bool {
	return errors.Is(err, signer.ErrInvalidCredentialFormat) ||
		errors.Is(err, storage.ErrInvalidRoot) ||
		errors.Is(err, kv.ErrEmptyKey) ||
		errors.Is(err, storage.ErrInvalidArgument)
}
