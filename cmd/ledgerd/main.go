// Command ledgerd runs a confidential account-chain ledger node.
//
// Usage:
//
//	ledgerd [flags]
//
// Flags:
//
//	--datadir        Data directory path (default: ~/.ledgerd)
//	--rpc.port       JSON-RPC listening port (default: 8645)
//	--genesis        Genesis manifest JSON file (optional)
//	--admission.cap  Admission queue capacity setting, must be >= 1000 (default: 1000);
//	                 validated only, the queue is always created with capacity 1000
//	--verbosity      Log level 0-5 (default: 3)
//	--metrics        Enable the Prometheus metrics endpoint (default: false)
//	--version        Print version and exit
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/latticechain/ledgerd/gossip"
	"github.com/latticechain/ledgerd/node"
)

var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. It takes CLI
// arguments without the program name so it can be tested in isolation.
func run(args []string) int {
	cfg, exit, code := parseFlags(args)
	if exit {
		return code
	}

	cfg.LogLevel = node.VerbosityToLogLevel(cfg.Verbosity)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	log.Printf("ledgerd %s starting", version)
	log.Printf("  datadir:        %s", cfg.DataDir)
	log.Printf("  rpc port:       %d", cfg.RPCPort)
	log.Printf("  genesis file:   %s", cfg.GenesisFile)
	log.Printf("  admission cap:  %d", cfg.AdmissionQueueCapacity)
	log.Printf("  verbosity:      %d (%s)", cfg.Verbosity, cfg.LogLevel)
	log.Printf("  metrics:        %v", cfg.Metrics)

	if err := cfg.Validate(); err != nil {
		log.Printf("invalid configuration: %v", err)
		return 1
	}

	n, err := node.New(cfg, gossip.NopPublisher{})
	if err != nil {
		log.Printf("failed to create node: %v", err)
		return 1
	}

	if err := n.Start(); err != nil {
		log.Printf("failed to start node: %v", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := n.Stop(ctx); err != nil {
		log.Printf("error during shutdown: %v", err)
		return 1
	}

	log.Println("shutdown complete")
	return 0
}

// parseFlags parses CLI arguments into a Config. Returns the config,
// whether the caller should exit immediately, and the exit code.
func parseFlags(args []string) (node.Config, bool, int) {
	cfg := node.DefaultConfig()
	fs := newCustomFlagSet("ledgerd")

	fs.StringVar(&cfg.DataDir, "datadir", cfg.DataDir, "data directory path")
	fs.IntVar(&cfg.RPCPort, "rpc.port", cfg.RPCPort, "JSON-RPC server port")
	fs.StringVar(&cfg.GenesisFile, "genesis", cfg.GenesisFile, "genesis manifest JSON file")
	admissionCap := uint64(cfg.AdmissionQueueCapacity)
	fs.Uint64Var(&admissionCap, "admission.cap", admissionCap, "admission queue capacity (>= 1000)")
	fs.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "log level 0-5 (0=silent, 5=trace)")
	fs.BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "enable the Prometheus metrics endpoint")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return cfg, true, 2
	}

	if *showVersion {
		fmt.Printf("ledgerd %s (commit %s)\n", version, commit)
		return cfg, true, 0
	}

	cfg.AdmissionQueueCapacity = int(admissionCap)
	return cfg, false, 0
}
