// Package config provides configuration management for the storage client.
//
// The Config structure controls the EVM network used for storage commitments,
// the ordered list of storage indexer endpoints, the KV endpoints, the signing
// key and all operation timeouts.
//
// # Basic Configuration
//
// Every field has a default that targets the 0G Galileo testnet, so the
// minimum configuration is a private key:
//
//	cfg := &config.Config{
//		PrivateKey: os.Getenv("PRIVATE_KEY"),
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//
// # Environment
//
// FromEnv reads the same settings from the process environment:
//
//	PRIVATE_KEY       64 hex chars, optional 0x prefix (required for writes)
//	ZG_RPC_URL        EVM RPC endpoint
//	ZG_INDEXER_URLS   comma separated, ordered, first healthy wins
//	ZG_KV_URLS        comma separated KV read endpoints
//	ZG_FLOW_CONTRACT  Flow contract address
//	ZG_STREAM_ID      KV stream for transaction mappings
//	ZG_TEMP_DIR       directory for scoped temporary files
//	ZG_DEBUG          enable debug logging
//
// # TOML Files
//
// LoadFile decodes a TOML document and then overlays the environment:
//
//	rpc_addr = "https://evmrpc-testnet.0g.ai"
//	indexer_urls = ["https://indexer-storage-testnet-turbo.0g.ai", "http://127.0.0.1:5678"]
//	probe_mode = "concurrent"
//
//	[timeouts]
//	probe = "3s"
//	upload = "2m"
//
// # Endpoint URLs
//
// Indexer and KV URLs select their transport by scheme:
//
//	https://host:port      gRPC over TLS
//	http://host:port       gRPC without TLS
//	kubo+http://host:5001  IPFS Kubo HTTP API (file transfer only)
//	gateway+https://host/  read-only HTTP gateway (downloads only)
//
// # Timeouts
//
// Zero values are replaced with defaults via WithDefaults(). Every network
// call is bounded: probes by Probe, transfers by Upload/Download, KV calls by
// KVWrite/KVRead and the commitment transaction by ChainSubmit and ReceiptWait.
//
// # Thread Safety
//
// Config instances should be created once and not modified after passing
// them to sdk.New. The Config is read-only during operations.
package config
