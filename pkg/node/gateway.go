package node

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/shamank/zgstore-go/pkg/kv"
	"github.com/shamank/zgstore-go/pkg/storage"
)

// GatewayNode reads content from an HTTP gateway (for example Lighthouse)
// that serves raw blocks at {base}{root}?format=raw. It cannot accept
// uploads or KV calls.
type GatewayNode struct {
	url  string
	base string
	http *http.Client
}

func dialGateway(url, base string, opts Options) (*GatewayNode, error) {
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("gateway endpoint %q must be http(s)", url)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &GatewayNode{url: url, base: base, http: opts.HTTPClient}, nil
}

// Close is a no-op; the HTTP client is shared.
func (n *GatewayNode) Close() error { return nil }

// Health issues a HEAD on the gateway base; any non-5xx answer is healthy.
func (n *GatewayNode) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, n.base, nil)
	if err != nil {
		return err
	}
	resp, err := n.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("heartbeat failed with: %v", resp.StatusCode)
	}
	return nil
}

// Upload is rejected: gateways are read-only.
func (n *GatewayNode) Upload(context.Context, storage.UploadRequest, io.Reader) (storage.Receipt, error) {
	return storage.Receipt{}, fmt.Errorf("%w: %w: %s is a read-only gateway", storage.ErrUploadRejected, ErrUnsupported, n.url)
}

// Download fetches {base}{root}?format=raw into w.
func (n *GatewayNode) Download(ctx context.Context, root storage.Root, w io.Writer) error {
	zap.L().Debug("Requesting root from gateway", zap.String("root", root.String()), zap.String("endpoint", n.url))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.base+root.String()+"?format=raw", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.ipld.raw")
	resp, err := n.http.Do(req)
	if err != nil {
		return err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			zap.L().Error("failed to close gateway response", zap.Error(err))
		}
	}(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", storage.ErrNotFound, root)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("gateway returned %d for %s", resp.StatusCode, root)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// PutKV is not supported by gateways.
func (n *GatewayNode) PutKV(context.Context, kv.PutRequest) (string, error) {
	return "", fmt.Errorf("%w: kv on %s", ErrUnsupported, n.url)
}

// GetKV is not supported by gateways.
func (n *GatewayNode) GetKV(context.Context, common.Hash, []byte) ([]byte, bool, error) {
	return nil, false, fmt.Errorf("%w: kv on %s", ErrUnsupported, n.url)
}
