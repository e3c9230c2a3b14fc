// Command zgstore serves the storage HTTP gateway and runs one-shot storage
// operations against the 0G storage network.
//
// Usage:
//
//	zgstore [-config zgstore.toml] <command> [flags] [args]
//
// Commands:
//
//	serve          run the HTTP gateway
//	upload         upload a file
//	download       download a root to a file
//	upload-json    upload a JSON document read from a file or stdin
//	download-json  download a root and print it as JSON
//	kv-store       map a transaction hash to a wallet
//	kv-get         look up the wallet stored for a transaction hash
//	health         probe every configured endpoint
//
// Without -config, settings come from PRIVATE_KEY and the ZG_* environment
// variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/shamank/zgstore-go/pkg/config"
	"github.com/shamank/zgstore-go/pkg/sdk"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, core *sdk.Core, args []string) error
}

var commands = []command{
	{name: "serve", usage: "[-addr :3000]", run: runServe},
	{name: "upload", usage: "<path>", run: runUpload},
	{name: "download", usage: "<rootHash> <outPath>", run: runDownload},
	{name: "upload-json", usage: "[-name file.json] <path|->", run: runUploadJSON},
	{name: "download-json", usage: "<rootHash>", run: runDownloadJSON},
	{name: "kv-store", usage: "<txHash> <wallet>", run: runKVStore},
	{name: "kv-get", usage: "<txHash>", run: runKVGet},
	{name: "health", usage: "", run: runHealth},
}

func main() {
	configPath := flag.String("config", "", "TOML config file; environment variables override it")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cmd, ok := lookup(flag.Arg(0))
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if _, err := sdk.NewLogger(cfg.Debug); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = zap.L().Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core, err := sdk.New(ctx, cfg)
	if err != nil {
		zap.L().Fatal("failed to initialize storage client", zap.Error(err))
	}
	defer core.Close()

	if err := cmd.run(ctx, core, flag.Args()[1:]); err != nil {
		zap.L().Error(cmd.name+" failed", zap.Error(err))
		stop()
		core.Close()
		os.Exit(1)
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnv()
	}
	return config.LoadFile(path)
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: %s [-config file] <command> [args]\n\ncommands:\n", os.Args[0])
	for _, c := range commands {
		fmt.Fprintf(out, "  %-14s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(out, "\nflags:")
	flag.PrintDefaults()
}
