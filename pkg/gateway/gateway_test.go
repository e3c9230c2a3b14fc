package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shamank/zgstore-go/pkg/endpoint"
	"github.com/shamank/zgstore-go/pkg/model"
	"github.com/shamank/zgstore-go/pkg/sdk"
	"github.com/shamank/zgstore-go/pkg/signer"
	"github.com/shamank/zgstore-go/pkg/storage"
)

// fakeStorage implements sdk.Storage with overridable funcs. Unset calls fail.
type fakeStorage struct {
	uploadFileData func(ctx context.Context, data []byte, name string) (storage.UploadResult, error)
	downloadFile   func(ctx context.Context, root, outPath string) error
	uploadJSON     func(ctx context.Context, value any, fileName string) (storage.JSONResult, error)
	downloadJSON   func(ctx context.Context, root, fileName string) (any, error)
	storeTx        func(ctx context.Context, txHash, wallet string) (model.KVStored, error)
	walletFor      func(ctx context.Context, txHash string) (string, bool, error)
	uploadRecord   func(ctx context.Context, rec storage.TransactionRecord) (storage.JSONResult, error)
	downloadRecord func(ctx context.Context, root string) (storage.TransactionRecord, error)
	health         func(ctx context.Context) model.HealthReport
}

var _ sdk.Storage = (*fakeStorage)(nil)

var errUnset = errors.New("not configured")

func (f *fakeStorage) UploadFile(context.Context, string) (storage.UploadResult, error) {
	return storage.UploadResult{}, errUnset
}

func (f *fakeStorage) UploadFileData(ctx context.Context, data []byte, name string) (storage.UploadResult, error) {
	if f.uploadFileData == nil {
		return storage.UploadResult{}, errUnset
	}
	return f.uploadFileData(ctx, data, name)
}

func (f *fakeStorage) DownloadFile(ctx context.Context, root, outPath string) error {
	if f.downloadFile == nil {
		return errUnset
	}
	return f.downloadFile(ctx, root, outPath)
}

func (f *fakeStorage) UploadJSONData(ctx context.Context, value any, fileName string) (storage.JSONResult, error) {
	if f.uploadJSON == nil {
		return storage.JSONResult{}, errUnset
	}
	return f.uploadJSON(ctx, value, fileName)
}

func (f *fakeStorage) DownloadJSONData(ctx context.Context, root, fileName string) (any, error) {
	if f.downloadJSON == nil {
		return nil, errUnset
	}
	return f.downloadJSON(ctx, root, fileName)
}

func (f *fakeStorage) StoreTransactionInKV(ctx context.Context, txHash, wallet string) (model.KVStored, error) {
	if f.storeTx == nil {
		return model.KVStored{}, errUnset
	}
	return f.storeTx(ctx, txHash, wallet)
}

func (f *fakeStorage) GetWalletFromTransaction(ctx context.Context, txHash string) (string, bool, error) {
	if f.walletFor == nil {
		return "", false, errUnset
	}
	return f.walletFor(ctx, txHash)
}

func (f *fakeStorage) UploadTransactionData(ctx context.Context, rec storage.TransactionRecord) (storage.JSONResult, error) {
	if f.uploadRecord == nil {
		return storage.JSONResult{}, errUnset
	}
	return f.uploadRecord(ctx, rec)
}

func (f *fakeStorage) DownloadTransactionData(ctx context.Context, root string) (storage.TransactionRecord, error) {
	if f.downloadRecord == nil {
		return storage.TransactionRecord{}, errUnset
	}
	return f.downloadRecord(ctx, root)
}

func (f *fakeStorage) Health(ctx context.Context) model.HealthReport {
	if f.health == nil {
		return model.HealthReport{Status: model.StatusOK}
	}
	return f.health(ctx)
}

func (f *fakeStorage) Close() {}

func serve(t *testing.T, f *fakeStorage) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	srv := httptest.NewServer(New(f, Options{TempDir: dir, MaxUploadBytes: 1 << 20}))
	t.Cleanup(srv.Close)
	return srv, dir
}

func decodeResponse(t *testing.T, resp *http.Response) model.Response {
	t.Helper()
	defer resp.Body.Close()
	var out model.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestUploadFile(t *testing.T) {
	var gotName string
	var gotData []byte
	srv, _ := serve(t, &fakeStorage{
		uploadFileData: func(_ context.Context, data []byte, name string) (storage.UploadResult, error) {
			gotName, gotData = name, data
			return storage.UploadResult{RootHash: "bafkroot", TxHash: "0xtx"}, nil
		},
	})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = part.Write([]byte("hello storage"))
	_ = mw.Close()

	resp, err := http.Post(srv.URL+"/api/upload/file", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	out := decodeResponse(t, resp)
	result, _ := out.Result.(map[string]any)
	if !out.Success || result["rootHash"] != "bafkroot" || result["originalName"] != "notes.txt" || result["size"] != float64(13) {
		t.Fatalf("response = %+v", out)
	}
	if gotName != "notes.txt" || string(gotData) != "hello storage" {
		t.Fatalf("upload got %q %q", gotName, gotData)
	}
}

func TestUploadFile_MissingFile(t *testing.T) {
	srv, _ := serve(t, &fakeStorage{})
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("other", "x")
	_ = mw.Close()

	resp, err := http.Post(srv.URL+"/api/upload/file", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out := decodeResponse(t, resp); out.Success || out.Error != "File is required" {
		t.Fatalf("response = %+v", out)
	}
}

func TestUploadJSON(t *testing.T) {
	srv, _ := serve(t, &fakeStorage{
		uploadJSON: func(_ context.Context, value any, fileName string) (storage.JSONResult, error) {
			raw, ok := value.(json.RawMessage)
			if !ok || string(raw) != `{"a":1}` {
				return storage.JSONResult{}, fmt.Errorf("unexpected value %T %s", value, raw)
			}
			return storage.JSONResult{RootHash: "bafkjson", TxHash: "0xtx", FileName: fileName, Size: 7}, nil
		},
	})

	resp := postJSON(t, srv.URL+"/api/upload/json", map[string]any{"data": map[string]int{"a": 1}, "fileName": "t.json"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	out := decodeResponse(t, resp)
	result, _ := out.Result.(map[string]any)
	if result["rootHash"] != "bafkjson" || result["fileName"] != "t.json" {
		t.Fatalf("response = %+v", out)
	}

	resp = postJSON(t, srv.URL+"/api/upload/json", map[string]any{"fileName": "t.json"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing data: status = %d", resp.StatusCode)
	}
	if out := decodeResponse(t, resp); out.Error != "JSON data is required" {
		t.Fatalf("response = %+v", out)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	unavailable := &endpoint.UnavailableError{Attempts: []endpoint.Attempt{{URL: "http://a", Err: errors.New("refused")}}}
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "unavailable", err: fmt.Errorf("upload: %w", unavailable), status: http.StatusServiceUnavailable, message: MsgUnavailable},
		{name: "not found", err: storage.ErrNotFound, status: http.StatusNotFound},
		{name: "malformed", err: storage.ErrMalformedPayload, status: http.StatusUnprocessableEntity},
		{name: "invalid root", err: storage.ErrInvalidRoot, status: http.StatusBadRequest},
		{name: "credential", err: signer.ErrInvalidCredentialFormat, status: http.StatusBadRequest},
		{name: "rejected", err: storage.ErrUploadRejected, status: http.StatusInternalServerError},
		{name: "integrity", err: storage.ErrIntegrityVerificationFailed, status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := serve(t, &fakeStorage{
				downloadJSON: func(context.Context, string, string) (any, error) { return nil, tt.err },
			})
			resp, err := http.Get(srv.URL + "/api/download/json/bafkroot")
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			out := decodeResponse(t, resp)
			if out.Success || out.Error == "" {
				t.Fatalf("response = %+v", out)
			}
			if tt.message != "" && out.Error != tt.message {
				t.Fatalf("error = %q, want %q", out.Error, tt.message)
			}
		})
	}
}

func TestDownloadJSON(t *testing.T) {
	srv, _ := serve(t, &fakeStorage{
		downloadJSON: func(_ context.Context, root, fileName string) (any, error) {
			if root != "bafkroot" || fileName != "doc.json" {
				return nil, fmt.Errorf("unexpected %s %s", root, fileName)
			}
			return map[string]any{"a": float64(1)}, nil
		},
	})
	resp, err := http.Get(srv.URL + "/api/download/json/bafkroot?fileName=doc.json")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	out := decodeResponse(t, resp)
	data, _ := out.Data.(map[string]any)
	if !out.Success || data["a"] != float64(1) {
		t.Fatalf("response = %+v", out)
	}
}

func TestDownloadFile(t *testing.T) {
	srv, dir := serve(t, &fakeStorage{
		downloadFile: func(_ context.Context, root, outPath string) error {
			if root == "missing" {
				return storage.ErrNotFound
			}
			return os.WriteFile(outPath, []byte("file-bytes"), 0o600)
		},
	})

	resp, err := http.Get(srv.URL + "/api/download/file/bafkroot?fileName=../../etc/report.pdf")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename="report.pdf"` {
		t.Fatalf("Content-Disposition = %q", got)
	}
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if buf.String() != "file-bytes" {
		t.Fatalf("body = %q", buf.String())
	}

	resp, err = http.Get(srv.URL + "/api/download/file/missing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp dir not clean: %d entries", len(entries))
	}
}

func TestKV(t *testing.T) {
	stored := map[string]string{}
	srv, _ := serve(t, &fakeStorage{
		storeTx: func(_ context.Context, txHash, wallet string) (model.KVStored, error) {
			stored[txHash] = wallet
			return model.KVStored{TxHash: "0xcommit"}, nil
		},
		walletFor: func(_ context.Context, txHash string) (string, bool, error) {
			w, ok := stored[txHash]
			return w, ok, nil
		},
	})

	resp := postJSON(t, srv.URL+"/api/kv", model.KVRequest{TransactionHash: "0xabc", WalletAddress: "0xwallet", Action: model.KVActionStore})
	out := decodeResponse(t, resp)
	data, _ := out.Data.(map[string]any)
	if resp.StatusCode != http.StatusOK || data["txHash"] != "0xcommit" {
		t.Fatalf("store response = %d %+v", resp.StatusCode, out)
	}

	resp = postJSON(t, srv.URL+"/api/kv", model.KVRequest{TransactionHash: "0xabc", Action: model.KVActionRetrieve})
	out = decodeResponse(t, resp)
	data, _ = out.Data.(map[string]any)
	if data["walletAddress"] != "0xwallet" || data["found"] != true {
		t.Fatalf("retrieve response = %+v", out)
	}

	resp, err := http.Get(srv.URL + "/api/kv?transactionHash=0xunknown")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	out = decodeResponse(t, resp)
	data, _ = out.Data.(map[string]any)
	if resp.StatusCode != http.StatusOK || !out.Success || data["found"] != false || data["walletAddress"] != "" {
		t.Fatalf("lookup response = %d %+v", resp.StatusCode, out)
	}
}

func TestKV_Validation(t *testing.T) {
	srv, _ := serve(t, &fakeStorage{})
	tests := []struct {
		name string
		body model.KVRequest
		want string
	}{
		{name: "no tx", body: model.KVRequest{Action: model.KVActionStore}, want: "Transaction hash is required"},
		{name: "no wallet", body: model.KVRequest{TransactionHash: "0x1", Action: model.KVActionStore}, want: "Wallet address is required for store action"},
		{name: "bad action", body: model.KVRequest{TransactionHash: "0x1", Action: "delete"}, want: `Invalid action. Use "store" or "retrieve"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/kv", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if out := decodeResponse(t, resp); out.Error != tt.want {
				t.Fatalf("error = %q", out.Error)
			}
		})
	}

	resp, err := http.Get(srv.URL + "/api/kv")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTransactionRoutes(t *testing.T) {
	srv, _ := serve(t, &fakeStorage{
		uploadRecord: func(_ context.Context, rec storage.TransactionRecord) (storage.JSONResult, error) {
			if rec.TransactionHash == "" {
				return storage.JSONResult{}, storage.ErrInvalidArgument
			}
			return storage.JSONResult{RootHash: "bafkrec", FileName: "transaction-" + rec.TransactionHash + ".json"}, nil
		},
		downloadRecord: func(_ context.Context, root string) (storage.TransactionRecord, error) {
			return storage.TransactionRecord{TransactionHash: "0xfeed", Type: storage.RecordType}, nil
		},
	})

	resp := postJSON(t, srv.URL+"/api/upload-transaction", map[string]any{"transactionHash": "0xfeed", "amount": "1.5"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/upload-transaction", map[string]any{"amount": "1.5"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("upload without hash: status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/download-transaction?rootHash=bafkrec")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	out := decodeResponse(t, resp)
	data, _ := out.Data.(map[string]any)
	if data["transactionHash"] != "0xfeed" || data["type"] != storage.RecordType {
		t.Fatalf("response = %+v", out)
	}

	resp, err = http.Get(srv.URL + "/api/download-transaction")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHealth(t *testing.T) {
	status := model.StatusOK
	srv, _ := serve(t, &fakeStorage{
		health: func(ctx context.Context) model.HealthReport {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("health probe has no deadline")
			}
			return model.HealthReport{Status: status, Timestamp: time.Now()}
		},
	})

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var report model.HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || report.Status != model.StatusOK {
		t.Fatalf("health = %d %+v", resp.StatusCode, report)
	}

	status = model.StatusUnavailable
	resp, err = http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := serve(t, &fakeStorage{})
	resp, err := http.Get(srv.URL + "/api/proposals")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		t.Fatalf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}
}
