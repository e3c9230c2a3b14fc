package node

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"google.golang.org/grpc/metadata"

	"github.com/shamank/zgstore-go/pkg/storage"
)

// Metadata keys carried by Upload calls.
const (
	HeaderRoot      = "x-zg-root"
	HeaderSize      = "x-zg-size"
	HeaderSigner    = "x-zg-signer"
	HeaderSignature = "x-zg-signature"
	// HeaderTx is sent by the client when a commitment exists and returned by
	// the node in the response header with the receipt transaction.
	HeaderTx = "x-zg-tx"
)

// uploadContext attaches the upload description to an outgoing context.
func uploadContext(ctx context.Context, req storage.UploadRequest) context.Context {
	kv := []string{
		HeaderRoot, req.Root.String(),
		HeaderSize, strconv.FormatInt(req.Size, 10),
		HeaderSigner, req.Signer.Hex(),
		HeaderSignature, hex.EncodeToString(req.Signature),
	}
	if req.TxHash != "" {
		kv = append(kv, HeaderTx, req.TxHash)
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

// uploadFromContext reads the upload description sent by uploadContext.
func uploadFromContext(ctx context.Context) (storage.UploadRequest, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	get := func(key string) string {
		if v := md.Get(key); len(v) > 0 {
			return v[0]
		}
		return ""
	}

	var req storage.UploadRequest
	root, err := storage.ParseRoot(get(HeaderRoot))
	if err != nil {
		return req, err
	}
	req.Root = root
	if req.Size, err = strconv.ParseInt(get(HeaderSize), 10, 64); err != nil || req.Size < 0 {
		return req, fmt.Errorf("invalid %s header %q", HeaderSize, get(HeaderSize))
	}
	if !common.IsHexAddress(get(HeaderSigner)) {
		return req, fmt.Errorf("invalid %s header", HeaderSigner)
	}
	req.Signer = common.HexToAddress(get(HeaderSigner))
	if req.Signature, err = hex.DecodeString(get(HeaderSignature)); err != nil {
		return req, fmt.Errorf("invalid %s header: %v", HeaderSignature, err)
	}
	req.TxHash = get(HeaderTx)
	return req, nil
}

// LocalReceipt is the receipt hash a node issues when no commitment
// transaction accompanies a write.
func LocalReceipt(digest [32]byte, signature []byte) common.Hash {
	return crypto.Keccak256Hash(digest[:], signature)
}
