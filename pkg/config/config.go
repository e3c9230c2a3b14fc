package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// ProbeSequential probes endpoints one after another in list order.
	ProbeSequential = "sequential"
	// ProbeConcurrent probes endpoints in parallel; the lowest index still wins.
	ProbeConcurrent = "concurrent"

	// DefaultStreamID is the KV stream used for transaction → wallet mappings.
	DefaultStreamID = "transaction-storage"
	// DefaultRPCAddr is the 0G testnet EVM RPC endpoint.
	DefaultRPCAddr = "https://evmrpc-testnet.0g.ai"
	// DefaultFlowContract is the Flow contract receiving storage commitments.
	DefaultFlowContract = "0x22E03a6A89B950F1c82ec5e74F8eCa321a105296"
	// DefaultKVURL is the KV service queried for stream reads.
	DefaultKVURL = "http://3.101.147.150:6789"
)

// DefaultIndexerURLs is the ordered list of storage indexers tried when
// Config.IndexerURLs is empty. The first healthy one wins.
var DefaultIndexerURLs = []string{
	"https://indexer-storage-testnet-turbo.0g.ai",
	"https://indexer-storage-testnet-standard.0g.ai",
	"https://testnet-indexer.0g.ai",
}

// Config holds all settings required to build storage, KV and commitment clients.
// Use Validate to fill implicit defaults and to check for required fields.
type Config struct {
	// Network selects the target chain (chain ID and human-readable name).
	Network Network `json:"network" toml:"network"`
	// RPCAddr is the EVM RPC endpoint used to submit commitment transactions.
	RPCAddr string `json:"rpc_addr" toml:"rpc_addr"`
	// PrivateKey is the hex-encoded secp256k1 key (64 hex chars, optional 0x).
	PrivateKey string `json:"private_key" toml:"private_key"`
	// IndexerURLs is the ordered list of storage endpoints; first healthy wins.
	IndexerURLs []string `json:"indexer_urls" toml:"indexer_urls"`
	// KVURLs is the ordered list of KV read endpoints.
	KVURLs []string `json:"kv_urls" toml:"kv_urls"`
	// FlowContract is the address of the Flow contract.
	FlowContract string `json:"flow_contract" toml:"flow_contract"`
	// LocalCommit skips the on-chain Flow commitment; nodes issue their own
	// receipts. Intended for dev nodes without a chain.
	LocalCommit bool `json:"local_commit" toml:"local_commit"`
	// StreamID is the logical KV stream for transaction mappings.
	StreamID string `json:"stream_id" toml:"stream_id"`
	// TempDir holds scoped temporary files. Default: $TMPDIR/0g-temp
	TempDir string `json:"temp_dir" toml:"temp_dir"`
	// ProbeMode is ProbeSequential (default) or ProbeConcurrent.
	ProbeMode string `json:"probe_mode" toml:"probe_mode"`
	// ProbeConcurrency bounds parallel probes in concurrent mode.
	ProbeConcurrency int `json:"probe_concurrency" toml:"probe_concurrency"`
	// HealthCacheTTL is how long a known-good endpoint is tried first.
	HealthCacheTTL time.Duration `json:"health_cache_ttl" toml:"health_cache_ttl"`
	// Debug enables verbose logging.
	Debug bool `json:"debug" toml:"debug"`
	// Timeouts configures per-operation timeouts. See Timeouts.WithDefaults for defaults.
	Timeouts Timeouts `json:"timeouts" toml:"timeouts"`
}

// Network describes an EVM network. ChainID is used for EIP-155 signing;
// Name is informational.
type Network struct {
	ChainID string `json:"chain_id" toml:"chain_id"`
	Name    string `json:"network_name" toml:"network_name"`
}

// Galileo is the 0G Galileo testnet.
var Galileo = Network{
	ChainID: "16602",
	Name:    "galileo",
}

// Timeouts controls operation deadlines.
// Zero values will be replaced by sane defaults in WithDefaults.
type Timeouts struct {
	Dial        time.Duration `json:"dial" toml:"dial"`                 // connect to an endpoint
	Probe       time.Duration `json:"probe" toml:"probe"`               // liveness probe
	Upload      time.Duration `json:"upload" toml:"upload"`             // data transmit to a node
	Download    time.Duration `json:"download" toml:"download"`         // data fetch from a node
	KVWrite     time.Duration `json:"kv_write" toml:"kv_write"`         // kv put on a node
	KVRead      time.Duration `json:"kv_read" toml:"kv_read"`           // kv get
	ChainSubmit time.Duration `json:"chain_submit" toml:"chain_submit"` // send commitment tx
	ReceiptWait time.Duration `json:"receipt_wait" toml:"receipt_wait"` // wait commitment receipt
}

// Validate normalizes the configuration by applying implicit defaults and
// verifies that at least one indexer endpoint remains. The private key is not
// checked here; signer.New does that eagerly when the client is built.
func (c *Config) Validate() error {
	if c.Network.ChainID == "" {
		c.Network = Galileo
	}
	if c.RPCAddr == "" {
		c.RPCAddr = DefaultRPCAddr
	}
	if len(c.IndexerURLs) == 0 {
		c.IndexerURLs = append([]string(nil), DefaultIndexerURLs...)
	}
	if len(c.KVURLs) == 0 {
		c.KVURLs = []string{DefaultKVURL}
	}
	if c.FlowContract == "" {
		c.FlowContract = DefaultFlowContract
	}
	if c.StreamID == "" {
		c.StreamID = DefaultStreamID
	}
	if c.TempDir == "" {
		c.TempDir = filepath.Join(os.TempDir(), "0g-temp")
	}
	if c.ProbeMode == "" {
		c.ProbeMode = ProbeSequential
	}
	if c.ProbeConcurrency <= 0 {
		c.ProbeConcurrency = 4
	}
	if c.HealthCacheTTL == 0 {
		c.HealthCacheTTL = 30 * time.Second
	}

	if c.ProbeMode != ProbeSequential && c.ProbeMode != ProbeConcurrent {
		return errors.New("probe mode must be sequential or concurrent")
	}
	c.IndexerURLs = compact(c.IndexerURLs)
	if len(c.IndexerURLs) == 0 {
		return errors.New("at least one indexer URL is required")
	}
	c.KVURLs = compact(c.KVURLs)
	return nil
}

// HasPrivateKey reports whether a private key is configured.
func (c *Config) HasPrivateKey() bool {
	return strings.TrimSpace(c.PrivateKey) != ""
}

// ChainID parses Network.ChainID as a decimal integer.
func (c *Config) ChainID() (int64, error) {
	return strconv.ParseInt(c.Network.ChainID, 10, 64)
}

// WithDefaults returns a copy of t with zero values replaced by defaults:
//
//	Dial:        5s
//	Probe:       5s
//	Upload:      120s
//	Download:    120s
//	KVWrite:     30s
//	KVRead:      10s
//	ChainSubmit: 25s
//	ReceiptWait: 90s
func (t Timeouts) WithDefaults() Timeouts {
	tt := t
	if tt.Dial == 0 {
		tt.Dial = 5 * time.Second
	}
	if tt.Probe == 0 {
		tt.Probe = 5 * time.Second
	}
	if tt.Upload == 0 {
		tt.Upload = 120 * time.Second
	}
	if tt.Download == 0 {
		tt.Download = 120 * time.Second
	}
	if tt.KVWrite == 0 {
		tt.KVWrite = 30 * time.Second
	}
	if tt.KVRead == 0 {
		tt.KVRead = 10 * time.Second
	}
	if tt.ChainSubmit == 0 {
		tt.ChainSubmit = 25 * time.Second
	}
	if tt.ReceiptWait == 0 {
		tt.ReceiptWait = 90 * time.Second
	}
	return tt
}

// Environment variable names read by FromEnv and LoadFile.
const (
	EnvPrivateKey   = "PRIVATE_KEY"
	EnvRPCAddr      = "ZG_RPC_URL"
	EnvIndexerURLs  = "ZG_INDEXER_URLS"
	EnvKVURLs       = "ZG_KV_URLS"
	EnvFlowContract = "ZG_FLOW_CONTRACT"
	EnvStreamID     = "ZG_STREAM_ID"
	EnvTempDir      = "ZG_TEMP_DIR"
	EnvDebug        = "ZG_DEBUG"
	EnvLocalCommit  = "ZG_LOCAL_COMMIT"
)

// FromEnv builds a Config from environment variables. Unset variables leave
// the corresponding field empty so that Validate can apply its defaults.
func FromEnv() (*Config, error) {
	c := &Config{}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile reads a TOML configuration file and overlays any environment
// variables on top of it.
func LoadFile(path string) (*Config, error) {
	c := &Config{}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrivateKey); ok {
		c.PrivateKey = v
	}
	if v, ok := lookup(EnvRPCAddr); ok && v != "" {
		c.RPCAddr = v
	}
	if v, ok := lookup(EnvIndexerURLs); ok && v != "" {
		c.IndexerURLs = strings.Split(v, ",")
	}
	if v, ok := lookup(EnvKVURLs); ok && v != "" {
		c.KVURLs = strings.Split(v, ",")
	}
	if v, ok := lookup(EnvFlowContract); ok && v != "" {
		c.FlowContract = v
	}
	if v, ok := lookup(EnvStreamID); ok && v != "" {
		c.StreamID = v
	}
	if v, ok := lookup(EnvTempDir); ok && v != "" {
		c.TempDir = v
	}
	for _, b := range []struct {
		name string
		dst  *bool
	}{
		{EnvDebug, &c.Debug},
		{EnvLocalCommit, &c.LocalCommit},
	} {
		v, ok := lookup(b.name)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", b.name, err)
		}
		*b.dst = parsed
	}
	return nil
}

// compact trims every entry and drops empty ones, preserving order.
func compact(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}
