package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shamank/zgstore-go/pkg/gateway"
	"github.com/shamank/zgstore-go/pkg/model"
	"github.com/shamank/zgstore-go/pkg/sdk"
)

var errUsage = errors.New("invalid arguments")

func runServe(ctx context.Context, core *sdk.Core, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", ":3000", "HTTP listen address")
	maxUpload := fs.Int64("max-upload", gateway.DefaultMaxUploadBytes, "largest accepted request body in bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	srv := gateway.New(core, gateway.Options{
		TempDir:        core.Config().TempDir,
		MaxUploadBytes: *maxUpload,
		HealthTimeout:  core.Config().Timeouts.Probe * 2,
	})
	return srv.ListenAndServe(ctx, *addr, 10*time.Second)
}

func runUpload(ctx context.Context, core *sdk.Core, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: upload <path>", errUsage)
	}
	res, err := core.UploadFile(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runDownload(ctx context.Context, core *sdk.Core, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: download <rootHash> <outPath>", errUsage)
	}
	if err := core.DownloadFile(ctx, args[0], args[1]); err != nil {
		return err
	}
	return printJSON(map[string]string{"rootHash": args[0], "path": args[1]})
}

func runUploadJSON(ctx context.Context, core *sdk.Core, args []string) error {
	fs := flag.NewFlagSet("upload-json", flag.ContinueOnError)
	name := fs.String("name", "", "stored file name (default data-<unix ms>.json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: upload-json [-name file.json] <path|->", errUsage)
	}
	raw, err := readInput(fs.Arg(0))
	if err != nil {
		return err
	}
	if !json.Valid(raw) {
		return fmt.Errorf("%w: %s is not valid JSON", errUsage, fs.Arg(0))
	}
	res, err := core.UploadJSONData(ctx, json.RawMessage(raw), *name)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runDownloadJSON(ctx context.Context, core *sdk.Core, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: download-json <rootHash>", errUsage)
	}
	v, err := core.DownloadJSONData(ctx, args[0], "")
	if err != nil {
		return err
	}
	return printJSON(v)
}

func runKVStore(ctx context.Context, core *sdk.Core, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: kv-store <txHash> <wallet>", errUsage)
	}
	res, err := core.StoreTransactionInKV(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runKVGet(ctx context.Context, core *sdk.Core, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: kv-get <txHash>", errUsage)
	}
	wallet, found, err := core.GetWalletFromTransaction(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(model.WalletLookup{WalletAddress: wallet, Found: found})
}

func runHealth(ctx context.Context, core *sdk.Core, _ []string) error {
	report := core.Health(ctx)
	if err := printJSON(report); err != nil {
		return err
	}
	if report.Status == model.StatusUnavailable {
		return errors.New(report.Message)
	}
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
