// Package storage uploads and downloads content on the 0G storage network
// through the first healthy storage node.
//
// # Roots
//
// Every upload is identified by a Root: a CIDv1 (raw codec, sha2-256
// multihash) computed over the exact bytes. Identical content always yields
// the same root, while the commitment transaction hash differs per upload.
// Roots are accepted with or without a "0g://" or "ipfs://" prefix:
//
//	root, err := storage.ParseRoot("0g://bafkreie...")
//
// # Client
//
// A Client is built from an endpoint selector over storage nodes, an optional
// signing credential and an optional commitment backend:
//
//	sel, _ := endpoint.New[storage.Node](cfg.IndexerURLs, node.StorageDialer(opts), endpoint.Options{})
//	cli, _ := storage.NewClient(sel, cred, flow, storage.Options{TempDir: cfg.TempDir})
//
//	res, err := cli.Upload(ctx, "report.pdf")
//	// res.RootHash, res.TxHash
//
//	err = cli.Download(ctx, res.RootHash, "copy.pdf")
//
// Without a credential the client is read-only and uploads fail with
// ErrNoCredential. Without a commitment backend the node's own receipt id is
// returned as the transaction hash.
//
// # Operation phases
//
// Each operation walks the phases
//
//	Idle → SelectingEndpoint → Authorizing → Transmitting → Committed | Failed
//
// and ends in exactly one terminal phase. Errors are returned as *OpError
// carrying the phase and endpoint; the underlying sentinel is reachable with
// errors.Is. Reads skip Authorizing. Set Options.Observer to watch transitions.
//
// # Errors
//
//   - ErrLocalIO: the source file is missing, unreadable or empty, or the
//     output could not be written.
//   - endpoint.ErrAllEndpointsUnavailable: no node passed its liveness probe.
//   - ErrUploadRejected: the node or the chain refused the commitment. A
//     transmit-phase timeout is reported the same way and is never retried.
//   - ErrIntegrityVerificationFailed: downloaded bytes did not match the root.
//   - ErrNotFound: the root is unknown to the node.
//   - ErrMalformedPayload: DownloadJSON received content that is not JSON.
//
// # Temporary files
//
// UploadJSON, UploadBytes and DownloadJSON pass content through a file under
// Options.TempDir that belongs to that single call and is removed on every
// exit path, cancellation included. Download writes into a hidden sibling of
// the output path and renames it into place only after verification, so a
// failed download leaves neither file behind.
//
// # Transaction records
//
// UploadTransactionRecord archives a vault transaction as JSON under
// "transaction-<hash>-<unix ms>.json", defaulting the timestamp and chain id.
package storage
