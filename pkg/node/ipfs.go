package node

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/kubo/client/rpc"
	"go.uber.org/zap"

	"github.com/shamank/zgstore-go/pkg/kv"
	"github.com/shamank/zgstore-go/pkg/storage"
)

// IPFSNode stores content as raw blocks on a Kubo node through its RPC API.
// Block CIDs use the raw codec and sha2-256, so a block's CID is the root.
// Kubo has no KV service and issues no commitment receipts of its own.
type IPFSNode struct {
	url string
	api *rpc.HttpApi
}

func dialIPFS(url, apiURL string, opts Options) (*IPFSNode, error) {
	api, err := rpc.NewURLApiWithClient(apiURL, opts.HTTPClient)
	if err != nil {
		zap.L().Error("Connection failed to IPFS", zap.String("url", apiURL), zap.Error(err))
		return nil, err
	}
	return &IPFSNode{url: url, api: api}, nil
}

// Close is a no-op; the HTTP client is shared.
func (n *IPFSNode) Close() error { return nil }

// Health asks the node for its version.
func (n *IPFSNode) Health(ctx context.Context) error {
	var out struct {
		Version string `json:"Version"`
	}
	if err := n.api.Request("version").Exec(ctx, &out); err != nil {
		return fmt.Errorf("ipfs heartbeat failed: %w", err)
	}
	zap.L().Debug("ipfs node alive", zap.String("endpoint", n.url), zap.String("version", out.Version))
	return nil
}

// Upload puts content as a single raw block and checks the CID Kubo reports.
func (n *IPFSNode) Upload(ctx context.Context, req storage.UploadRequest, content io.Reader) (storage.Receipt, error) {
	var out struct {
		Key  string `json:"Key"`
		Size int64  `json:"Size"`
	}
	err := n.api.Request("block/put").
		Option("cid-codec", "raw").
		Option("mhtype", "sha2-256").
		Option("pin", true).
		FileBody(content).
		Exec(ctx, &out)
	if err != nil {
		zap.L().Error("error uploading to ipfs", zap.String("root", req.Root.String()), zap.Error(err))
		return storage.Receipt{}, err
	}
	if out.Key != req.Root.String() {
		return storage.Receipt{}, fmt.Errorf("%w: ipfs stored %s, expected %s", storage.ErrIntegrityVerificationFailed, out.Key, req.Root)
	}
	tx := req.TxHash
	if tx == "" {
		tx = LocalReceipt(req.Root.Digest(), req.Signature).Hex()
	}
	zap.L().Debug("Successfully uploaded to IPFS", zap.String("root", out.Key), zap.Int64("size", out.Size))
	return storage.Receipt{Root: out.Key, TxHash: tx}, nil
}

// Download fetches the raw block for root. The request runs offline so a
// block the node does not hold is reported as not found instead of being
// searched for on the public network.
func (n *IPFSNode) Download(ctx context.Context, root storage.Root, w io.Writer) (err error) {
	resp, err := n.api.Request("block/get", root.String()).Option("offline", true).Send(ctx)
	if err != nil {
		zap.L().Error("error executing the block/get command in ipfs", zap.String("root", root.String()), zap.Error(err))
		return err
	}
	defer func(resp *rpc.Response) {
		if cerr := resp.Close(); cerr != nil {
			zap.L().Error("error closing response in ipfs", zap.String("root", root.String()), zap.Error(cerr))
		}
	}(resp)

	if resp.Error != nil {
		if isIPFSNotFound(resp.Error.Message) {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, resp.Error.Message)
		}
		return resp.Error
	}
	_, err = io.Copy(w, resp.Output)
	return err
}

func isIPFSNotFound(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no link named")
}

// PutKV is not supported by Kubo.
func (n *IPFSNode) PutKV(context.Context, kv.PutRequest) (string, error) {
	return "", fmt.Errorf("%w: kv on %s", ErrUnsupported, n.url)
}

// GetKV is not supported by Kubo.
func (n *IPFSNode) GetKV(context.Context, common.Hash, []byte) ([]byte, bool, error) {
	return nil, false, fmt.Errorf("%w: kv on %s", ErrUnsupported, n.url)
}
