// Package node is the transport between the storage client and the
// network's storage nodes, plus a small node implementation for local
// development and tests.
//
// Dial picks the transport from the endpoint URL:
//
//   - "kubo+http://host:5001": a Kubo node. Content is stored as raw blocks,
//     so the block CID equals the content root.
//   - "gateway+https://host/ipfs/": a read-only HTTP gateway serving raw blocks.
//   - anything else: a gRPC storage node speaking zgstore.storage.v1.Storage
//     (file transfer), zgstore.kv.v1.KV (key-value) and grpc.health.v1.
//     "https://" enables TLS; "http://" and bare addresses are insecure.
//
// Every connection implements both storage.Node and kv.Node; transports
// lacking an operation return ErrUnsupported. gRPC status codes are mapped
// onto the storage error taxonomy: NotFound to storage.ErrNotFound,
// InvalidArgument and PermissionDenied to storage.ErrUploadRejected, and
// DataLoss to storage.ErrIntegrityVerificationFailed.
//
// Server implements the gRPC services over a badger-backed Store. It
// re-hashes uploaded bytes against the declared root, recovers the signer
// from the EIP-191 signature and rejects any mismatch. When a write carries
// no commitment transaction, the node answers with LocalReceipt.
package node
