//go:build e2e

package e2e

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/shamank/zgstore-go/pkg/config"
	"github.com/shamank/zgstore-go/pkg/sdk"
)

// TestJSONRoundTrip uploads to the network configured in the environment.
// It needs a funded PRIVATE_KEY unless ZG_LOCAL_COMMIT is set.
func TestJSONRoundTrip(t *testing.T) {
	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if !cfg.HasPrivateKey() {
		t.Skip(config.EnvPrivateKey + " not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	core, err := sdk.New(ctx, cfg)
	if err != nil {
		t.Fatalf("sdk.New: %v", err)
	}
	defer core.Close()

	want := map[string]any{"a": float64(1), "at": time.Now().UTC().Format(time.RFC3339Nano)}
	res, err := core.UploadJSONData(ctx, want, "e2e.json")
	if err != nil {
		t.Fatalf("UploadJSONData: %v", err)
	}
	got, err := core.DownloadJSONData(ctx, res.RootHash, "e2e.json")
	if err != nil {
		t.Fatalf("DownloadJSONData: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DownloadJSONData = %#v, want %#v", got, want)
	}
}
