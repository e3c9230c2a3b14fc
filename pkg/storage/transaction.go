package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Defaults applied to transaction records that leave these fields empty.
const (
	DefaultRecordChainID = 16602
	RecordVersion        = "1.0"
	RecordType           = "vault_transaction"
)

// TransactionRecord is a vault transaction archived on the storage network.
type TransactionRecord struct {
	TransactionType string          `json:"transactionType"`
	TransactionHash string          `json:"transactionHash"`
	Amount          decimal.Decimal `json:"amount"`
	WalletAddress   string          `json:"walletAddress"`
	ChainID         int64           `json:"chainId"`
	Timestamp       string          `json:"timestamp"`
	Version         string          `json:"version"`
	Type            string          `json:"type"`
}

// withDefaults fills timestamp (RFC 3339, UTC now), chain id, version and type.
func (r TransactionRecord) withDefaults(now time.Time) TransactionRecord {
	if r.Timestamp == "" {
		r.Timestamp = now.UTC().Format(time.RFC3339Nano)
	}
	if r.ChainID == 0 {
		r.ChainID = DefaultRecordChainID
	}
	r.Version = RecordVersion
	r.Type = RecordType
	return r
}

// RecordFileName returns "transaction-<hash>-<unix ms>.json".
func RecordFileName(txHash string, now time.Time) string {
	return fmt.Sprintf("transaction-%s-%d.json", txHash, now.UnixMilli())
}

// UploadTransactionRecord archives rec as JSON. Missing timestamp and chain id
// are defaulted; version and type are always set.
func (c *Client) UploadTransactionRecord(ctx context.Context, rec TransactionRecord) (JSONResult, error) {
	if strings.TrimSpace(rec.TransactionHash) == "" {
		return JSONResult{}, fmt.Errorf("%w: transaction hash is required", ErrInvalidArgument)
	}
	now := time.Now()
	return c.UploadJSON(ctx, rec.withDefaults(now), RecordFileName(rec.TransactionHash, now))
}

// DownloadTransactionRecord retrieves a record stored by UploadTransactionRecord.
func (c *Client) DownloadTransactionRecord(ctx context.Context, root string) (TransactionRecord, error) {
	var rec TransactionRecord
	if err := c.DownloadJSON(ctx, root, "transaction.json", &rec); err != nil {
		return TransactionRecord{}, err
	}
	return rec, nil
}
