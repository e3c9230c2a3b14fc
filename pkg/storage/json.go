package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"time"
)

// JSONResult is returned by UploadJSON. Size is the exact byte length of the
// serialized payload.
type JSONResult struct {
	RootHash string `json:"rootHash"`
	TxHash   string `json:"txHash"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
}

// UploadJSON serializes value as indented JSON and uploads it through a scoped
// temporary file. When fileName is empty, "data-<unix ms>.json" is used.
func (c *Client) UploadJSON(ctx context.Context, value any, fileName string) (JSONResult, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return JSONResult{}, fmt.Errorf("storage: encode json: %w", err)
	}
	if fileName == "" {
		fileName = fmt.Sprintf("data-%d.json", time.Now().UnixMilli())
	}
	res, err := c.UploadBytes(ctx, data, fileName)
	if err != nil {
		return JSONResult{}, err
	}
	return JSONResult{
		RootHash: res.RootHash,
		TxHash:   res.TxHash,
		FileName: fileName,
		Size:     int64(len(data)),
	}, nil
}

// DownloadJSON downloads root into a scoped temporary file and decodes it into
// out. Content that is not valid JSON yields ErrMalformedPayload, which is
// distinct from every transport error. out must be a non-nil pointer.
func (c *Client) DownloadJSON(ctx context.Context, root, fileName string, out any) error {
	if rv := reflect.ValueOf(out); rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: json target must be a non-nil pointer, got %T", ErrInvalidArgument, out)
	}
	data, err := c.downloadScoped(ctx, root, fileName)
	if err != nil {
		return err
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: content of %s is not valid JSON", ErrMalformedPayload, root)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// downloadScoped returns the verified content of root. The temporary file it
// passes through is gone by the time it returns.
func (c *Client) downloadScoped(ctx context.Context, root, hint string) ([]byte, error) {
	s, err := newScratch(c.opts.TempDir, hint)
	if err != nil {
		return nil, err
	}
	defer s.release()
	if err := c.Download(ctx, root, s.path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLocalIO, err)
	}
	return data, nil
}
