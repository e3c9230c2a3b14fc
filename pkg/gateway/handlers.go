package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shamank/zgstore-go/pkg/model"
	"github.com/shamank/zgstore-go/pkg/storage"
)

// multipartMemory is the part of a multipart body kept in memory before
// spilling to disk.
const multipartMemory = 8 << 20

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		badRequest(w, "invalid multipart body: "+err.Error())
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			zap.L().Warn("failed to remove multipart files", zap.Error(err))
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "File is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, "failed to read file: "+err.Error())
		return
	}
	if len(data) == 0 {
		badRequest(w, "File is empty")
		return
	}

	zap.L().Info("Uploading file", zap.String("name", header.Filename), zap.Int("size", len(data)))
	res, err := s.store.UploadFileData(r.Context(), data, header.Filename)
	if err != nil {
		writeError(w, "file upload", err)
		return
	}
	writeJSON(w, http.StatusOK, model.Response{
		Success: true,
		Result: model.FileUpload{
			RootHash:     res.RootHash,
			TxHash:       res.TxHash,
			OriginalName: header.Filename,
			Size:         int64(len(data)),
		},
	})
}

func (s *Server) handleUploadJSON(w http.ResponseWriter, r *http.Request) {
	var req model.JSONUploadRequest
	if err := s.decode(w, r, &req); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if !req.HasData() {
		badRequest(w, "JSON data is required")
		return
	}
	res, err := s.store.UploadJSONData(r.Context(), req.Data, req.FileName)
	if err != nil {
		writeError(w, "json upload", err)
		return
	}
	writeJSON(w, http.StatusOK, model.Response{Success: true, Result: res})
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	root := r.PathValue("rootHash")
	fileName := downloadName(r.URL.Query().Get("fileName"), "bin")

	dir, err := os.MkdirTemp(s.opts.TempDir, "download-")
	if err != nil {
		writeError(w, "file download", fmt.Errorf("%w: %v", storage.ErrLocalIO, err))
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			zap.L().Warn("failed to remove download dir", zap.String("dir", dir), zap.Error(err))
		}
	}()
	out := filepath.Join(dir, "content")
	if err := s.store.DownloadFile(r.Context(), root, out); err != nil {
		writeError(w, "file download", err)
		return
	}

	f, err := os.Open(out)
	if err != nil {
		writeError(w, "file download", fmt.Errorf("%w: %v", storage.ErrLocalIO, err))
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	if info, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", fmt.Sprint(info.Size()))
	}
	if _, err := io.Copy(w, f); err != nil {
		zap.L().Warn("failed to stream download", zap.String("root", root), zap.Error(err))
	}
}

func (s *Server) handleDownloadJSON(w http.ResponseWriter, r *http.Request) {
	root := r.PathValue("rootHash")
	data, err := s.store.DownloadJSONData(r.Context(), root, downloadName(r.URL.Query().Get("fileName"), "json"))
	if err != nil {
		writeError(w, "json download", err)
		return
	}
	writeJSON(w, http.StatusOK, model.Response{Success: true, Data: data})
}

func (s *Server) handleDownloadTransaction(w http.ResponseWriter, r *http.Request) {
	root := strings.TrimSpace(r.URL.Query().Get("rootHash"))
	if root == "" {
		badRequest(w, "Root hash is required")
		return
	}
	rec, err := s.store.DownloadTransactionData(r.Context(), root)
	if err != nil {
		writeError(w, "transaction download", err)
		return
	}
	writeJSON(w, http.StatusOK, model.Response{
		Success: true,
		Data:    rec,
		Message: "Transaction data downloaded from 0G storage successfully",
	})
}

func (s *Server) handleUploadTransaction(w http.ResponseWriter, r *http.Request) {
	var rec storage.TransactionRecord
	if err := s.decode(w, r, &rec); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	res, err := s.store.UploadTransactionData(r.Context(), rec)
	if err != nil {
		writeError(w, "transaction upload", err)
		return
	}
	writeJSON(w, http.StatusOK, model.Response{
		Success: true,
		Result:  res,
		Message: "Transaction data uploaded to 0G storage successfully",
	})
}

func (s *Server) handleKV(w http.ResponseWriter, r *http.Request) {
	var req model.KVRequest
	if err := s.decode(w, r, &req); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.TransactionHash) == "" {
		badRequest(w, "Transaction hash is required")
		return
	}
	switch req.Action {
	case model.KVActionStore:
		if strings.TrimSpace(req.WalletAddress) == "" {
			badRequest(w, "Wallet address is required for store action")
			return
		}
		stored, err := s.store.StoreTransactionInKV(r.Context(), req.TransactionHash, req.WalletAddress)
		if err != nil {
			writeError(w, "kv store", err)
			return
		}
		writeJSON(w, http.StatusOK, model.Response{
			Success: true,
			Data:    stored,
			Message: "Transaction stored in KV storage successfully",
		})
	case model.KVActionRetrieve:
		s.lookupWallet(r.Context(), w, req.TransactionHash)
	default:
		badRequest(w, `Invalid action. Use "store" or "retrieve"`)
	}
}

func (s *Server) handleKVLookup(w http.ResponseWriter, r *http.Request) {
	tx := strings.TrimSpace(r.URL.Query().Get("transactionHash"))
	if tx == "" {
		badRequest(w, "Transaction hash is required")
		return
	}
	s.lookupWallet(r.Context(), w, tx)
}

func (s *Server) lookupWallet(ctx context.Context, w http.ResponseWriter, tx string) {
	wallet, found, err := s.store.GetWalletFromTransaction(ctx, tx)
	if err != nil {
		writeError(w, "kv retrieve", err)
		return
	}
	msg := "Wallet address retrieved from KV storage successfully"
	if !found {
		msg = "No wallet address stored for this transaction"
	}
	writeJSON(w, http.StatusOK, model.Response{
		Success: true,
		Data:    model.WalletLookup{WalletAddress: wallet, Found: found},
		Message: msg,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.HealthTimeout)
	defer cancel()
	report := s.store.Health(ctx)
	status := http.StatusOK
	if report.Status == model.StatusUnavailable {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// decode reads a bounded JSON body into v.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}

// downloadName returns the base name of requested, or "download-<unix ms>.<ext>".
func downloadName(requested, ext string) string {
	name := filepath.Base(strings.TrimSpace(requested))
	if name == "." || name == "/" || name == "" {
		return fmt.Sprintf("download-%d.%s", time.Now().UnixMilli(), ext)
	}
	return name
}
