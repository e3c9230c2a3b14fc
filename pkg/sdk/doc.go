// Package sdk is the high-level entry point for storing files, JSON documents
// and transaction mappings on the 0G storage network.
//
// It wires a signing credential, ordered endpoint selectors over storage
// indexers and KV services, and an optional on-chain Flow committer into one
// explicitly constructed Core. There is no process-wide client: build a Core
// and pass it to whatever needs it.
//
// # Quick Start
//
//	import (
//		"github.com/shamank/zgstore-go/pkg/config"
//		"github.com/shamank/zgstore-go/pkg/sdk"
//	)
//
//	func main() {
//		ctx := context.Background()
//		cfg, err := config.FromEnv() // PRIVATE_KEY, ZG_INDEXER_URLS, ZG_KV_URLS, ZG_RPC_URL
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		core, err := sdk.New(ctx, cfg)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer core.Close()
//
//		res, err := core.UploadJSONData(ctx, map[string]int{"a": 1}, "t.json")
//		if err != nil {
//			log.Fatal(err)
//		}
//		v, err := core.DownloadJSONData(ctx, res.RootHash, "t.json")
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println(v)
//	}
//
// # Operations
//
// Storage interface (implemented by Core):
//   - UploadFile / DownloadFile: content-addressed file transfer
//   - UploadJSONData / DownloadJSONData: JSON through a scoped temporary file
//   - StoreTransactionInKV / GetWalletFromTransaction: transaction → wallet mapping
//   - UploadTransactionData / DownloadTransactionData: archived vault transactions
//   - Health: probe of every configured endpoint
//
// Every operation walks Idle → SelectingEndpoint → Authorizing → Transmitting
// and ends in Committed or Failed. WithObserver reports the transitions.
//
// # Commitments
//
// By default each upload and KV write is committed through the Flow contract
// at Config.FlowContract before the node accepts it. With Config.LocalCommit
// (ZG_LOCAL_COMMIT=true) no chain is contacted and the node returns its own
// receipt; this is meant for dev nodes started with cmd/zgnode.
//
// # Error Handling
//
// Errors are classified with errors.Is:
//   - signer.ErrInvalidCredentialFormat: returned by New, fatal at startup
//   - endpoint.ErrAllEndpointsUnavailable: every endpoint failed its probe;
//     errors.As with *endpoint.UnavailableError lists each attempt
//   - storage.ErrLocalIO, storage.ErrUploadRejected, storage.ErrNotFound,
//     storage.ErrIntegrityVerificationFailed, storage.ErrMalformedPayload
//
// A wallet lookup for an unknown transaction is not an error: found is false.
// Nothing is retried internally; the caller decides.
//
// # Thread Safety
//
// Core is safe for concurrent use.
package sdk
