package model

import (
	"encoding/json"
	"time"
)

// Response is the JSON envelope of every gateway response. Upload routes
// fill Result; download and KV routes fill Data.
type Response struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// FileUpload is the result of a multipart file upload.
type FileUpload struct {
	RootHash     string `json:"rootHash"`
	TxHash       string `json:"txHash"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
}

// JSONUploadRequest is the body of POST /api/upload/json.
type JSONUploadRequest struct {
	Data     json.RawMessage `json:"data"`
	FileName string          `json:"fileName"`
}

// HasData reports whether Data carries a value other than JSON null.
func (r JSONUploadRequest) HasData() bool {
	return len(r.Data) > 0 && string(r.Data) != "null"
}

// KV actions accepted by POST /api/kv.
const (
	KVActionStore    = "store"
	KVActionRetrieve = "retrieve"
)

// KVRequest is the body of POST /api/kv.
type KVRequest struct {
	TransactionHash string `json:"transactionHash"`
	WalletAddress   string `json:"walletAddress"`
	Action          string `json:"action"`
}

// KVStored is returned after a transaction mapping is stored.
type KVStored struct {
	TxHash string `json:"txHash"`
}

// WalletLookup is returned by a KV retrieval. WalletAddress is empty and
// Found false when the transaction was never stored.
type WalletLookup struct {
	WalletAddress string `json:"walletAddress"`
	Found         bool   `json:"found"`
}

// Health states.
const (
	StatusOK          = "OK"
	StatusDegraded    = "DEGRADED"
	StatusUnavailable = "UNAVAILABLE"
)

// EndpointStatus is the probe outcome of one endpoint.
type EndpointStatus struct {
	URL       string `json:"url"`
	State     string `json:"state"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// HealthReport summarizes the reachability of the storage network.
type HealthReport struct {
	Status    string           `json:"status"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Network   string           `json:"network"`
	ChainID   string           `json:"chainId"`
	Signer    string           `json:"signer,omitempty"`
	Balance   string           `json:"balance,omitempty"`
	Indexers  []EndpointStatus `json:"indexers"`
	KV        []EndpointStatus `json:"kv"`
}
