package blockchain

import (
	"context"
	"testing"
	"time"
)

func TestInitEvm_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	_, err := InitEvm(ctx, "http://127.0.0.1:1", "0x22E03a6A89B950F1c82ec5e74F8eCa321a105296")
	if err == nil {
		t.Fatal("expected error dialing")
	}
	if time.Since(start) > 6*time.Second {
		t.Fatalf("InitEvm took too long")
	}
}

func TestInitEvm_InvalidFlowAddress(t *testing.T) {
	if _, err := InitEvm(context.Background(), "http://127.0.0.1:1", "not-an-address"); err == nil {
		t.Fatal("expected error for invalid flow address")
	}
}
