package node

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/latticechain/ledgerd/gossip"
	"github.com/latticechain/ledgerd/ledger"
	"github.com/latticechain/ledgerd/log"
	"github.com/latticechain/ledgerd/rpc"
	"github.com/latticechain/ledgerd/storage"
)

var logger = log.Module("node")

// Node wires the storage environment, ledger engine, admission queue,
// RPC server, and optional metrics server into a single lifecycle.
type Node struct {
	config Config

	store     *storage.Store
	engine    *ledger.Engine
	admission *rpc.Admission
	feed      *rpc.Feed
	server    *rpc.Server
	metrics   *metrics
	registry  *prometheus.Registry

	httpServer    *http.Server
	metricsServer *http.Server

	cancel context.CancelFunc
	done   chan struct{}
}

// New opens storage at config.DataDir, applies the genesis manifest if
// one is configured (addresses that already have a genesis record are
// skipped), and assembles every collaborator. It
// does not start any goroutines; call Start for that.
func New(config Config, publisher gossip.Publisher) (*Node, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := config.InitDataDir(); err != nil {
		return nil, err
	}

	store, err := storage.Open(config.StoragePath())
	if err != nil {
		return nil, fmt.Errorf("node: open storage: %w", err)
	}

	engine := ledger.NewEngine(store)

	if config.GenesisFile != "" {
		manifest, err := ledger.LoadGenesisFile(config.GenesisFile)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("node: load genesis: %w", err)
		}
		if err := engine.LoadGenesis(manifest); err != nil {
			store.Close()
			return nil, fmt.Errorf("node: apply genesis: %w", err)
		}
	}

	admission := rpc.NewAdmission(engine, publisher)
	feed := rpc.NewFeed()
	server := rpc.NewServer(admission, engine, feed)

	n := &Node{
		config:    config,
		store:     store,
		engine:    engine,
		admission: admission,
		feed:      feed,
		server:    server,
		done:      make(chan struct{}),
	}

	if config.Metrics {
		n.registry = prometheus.NewRegistry()
		n.metrics = newMetrics(n.registry)
		m := n.metrics
		admission.SetMetricsHook(func(admitted bool, rejectKind string, dur time.Duration) {
			if admitted {
				m.transactionsAdmitted.Inc()
			} else {
				m.transactionsRejected.WithLabelValues(rejectKind).Inc()
			}
			m.admissionLatency.Observe(dur.Seconds())
		})
	}

	return n, nil
}

// Start launches the admission consumer, the RPC HTTP server, and (if
// enabled) the metrics HTTP server, returning once they are listening.
func (n *Node) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	go n.admission.Run(ctx)

	if n.metrics != nil {
		go n.pollQueueDepth(ctx)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(n.registry, promhttp.HandlerOpts{}))
		n.metricsServer = &http.Server{Addr: "127.0.0.1:9645", Handler: mux}
		go func() {
			if err := n.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	n.httpServer = &http.Server{Addr: n.config.RPCAddr(), Handler: n.server.Handler()}

	ln, err := net.Listen("tcp", n.config.RPCAddr())
	if err != nil {
		cancel()
		return fmt.Errorf("node: listen: %w", err)
	}

	go func() {
		defer close(n.done)
		if err := n.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("rpc server failed", "error", err)
		}
	}()

	logger.Info("node started", "name", n.config.Name, "rpc_addr", n.config.RPCAddr())
	return nil
}

func (n *Node) pollQueueDepth(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.metrics.admissionQueueDepth.Set(float64(n.admission.QueueDepth()))
		}
	}
}

// Stop shuts down the RPC and metrics servers, stops the admission
// consumer, and closes storage. It blocks until the RPC server has
// fully drained in-flight requests or the supplied context expires.
func (n *Node) Stop(ctx context.Context) error {
	if n.cancel != nil {
		n.cancel()
	}
	if n.httpServer != nil {
		if err := n.httpServer.Shutdown(ctx); err != nil {
			logger.Warn("rpc server shutdown error", "error", err)
		}
	}
	if n.metricsServer != nil {
		if err := n.metricsServer.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown error", "error", err)
		}
	}
	return n.store.Close()
}

// Wait blocks until the RPC server has stopped serving.
func (n *Node) Wait() {
	<-n.done
}
