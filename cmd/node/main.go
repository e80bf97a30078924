// Command node runs a single Chord overlay peer: it loads its
// configuration, opens a listener, builds its ring state, joins (or
// creates) a ring through the configured bootstrap mechanism, and serves
// DHT RPCs until signaled to stop.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"chordring/internal/bootstrap"
	"chordring/internal/chord"
	"chordring/internal/config"
	"chordring/internal/domain"
	"chordring/internal/logger"
	zapfactory "chordring/internal/logger/zap"
	"chordring/internal/ring"
	"chordring/internal/storage"
	"chordring/internal/telemetry"
	"chordring/internal/telemetry/lookuptrace"
	"chordring/internal/transport/grpcnet"
)

var defaultConfigPath = "config/node/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %q: %v", *configPath, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer func() { _ = zapLog.Sync() }()
		lgr = zapfactory.NewAdapter(zapLog)
	} else {
		lgr = &logger.NopLogger{}
	}
	cfg.LogConfig(lgr)

	lis, err := cfg.Node.Listen(cfg.DHT.Mode)
	if err != nil {
		lgr.Error("failed to initialize listener", logger.F("err", err))
		os.Exit(1)
	}
	defer func() { _ = lis.Close() }()
	addr := lis.Addr().String()
	lgr.Debug("listener created", logger.F("addr", addr))

	space, err := ring.NewSpace(cfg.DHT.IDBits)
	if err != nil {
		lgr.Error("failed to initialize identifier space", logger.F("err", err))
		os.Exit(1)
	}

	var id ring.ID
	if cfg.Node.Id == "" {
		id = space.HashString(addr)
	} else {
		id, err = space.FromHex(cfg.Node.Id)
		if err != nil {
			lgr.Error("invalid node id in configuration", logger.F("err", err))
			os.Exit(1)
		}
	}
	self := &domain.Node{ID: id, Addr: addr}
	lgr = lgr.Named("node").With(logger.FNode("self", self))
	lgr.Info("node identity resolved")

	shutdownTracer := telemetry.InitTracer(cfg.Telemetry, "chordring-node", id)
	defer shutdownTracer(context.Background())

	var grpcOpts []grpc.ServerOption
	var clientOpts []grpc.DialOption
	if cfg.Telemetry.Tracing.Enabled {
		grpcOpts = append(grpcOpts, grpc.ChainUnaryInterceptor(lookuptrace.ServerInterceptor()))
		clientOpts = append(clientOpts, grpc.WithChainUnaryInterceptor(lookuptrace.ClientInterceptor()))
		lgr.Debug("gRPC lookup tracing enabled")
	}

	pool := grpcnet.NewPool(lgr.Named("pool"), cfg.DHT.FaultTolerance.FailureTimeout, clientOpts...)
	defer pool.CloseAll()
	tr := grpcnet.NewClient(pool, space)

	store := storage.NewMemoryStorage(lgr.Named("storage"))

	state := chord.New(self, space, cfg.DHT.FaultTolerance.SuccessorListSize, store, tr,
		chord.WithLogger(lgr.Named("chord")),
		chord.WithFailureTimeout(cfg.DHT.FaultTolerance.FailureTimeout),
	)

	grpcServer := grpc.NewServer(grpcOpts...)
	rpcServer := grpcnet.NewServer(state, space, lgr.Named("rpc"))
	rpcServer.RegisterService(grpcServer)

	serveErr := make(chan error, 1)
	go func() { serveErr <- grpcServer.Serve(lis) }()
	lgr.Debug("server started")

	var discoverer bootstrap.Bootstrap
	switch cfg.DHT.Bootstrap.Mode {
	case "static":
		discoverer = bootstrap.NewStaticBootstrap(cfg.DHT.Bootstrap.Peers)
	case "dns":
		discoverer = bootstrap.NewDNSBootstrap(cfg.DHT.Bootstrap, lgr.Named("bootstrap"))
	case "init":
		discoverer = bootstrap.NewStaticBootstrap(nil)
	default:
		lgr.Error("unsupported bootstrap mode", logger.F("mode", cfg.DHT.Bootstrap.Mode))
		grpcServer.Stop()
		os.Exit(1)
	}

	var registrar bootstrap.Bootstrap
	if cfg.DHT.Bootstrap.Register.Enabled {
		r, err := bootstrap.NewRoute53Bootstrap(cfg.DHT.Bootstrap.Register)
		if err != nil {
			lgr.Error("failed to initialize route53 registrar", logger.F("err", err))
			grpcServer.Stop()
			os.Exit(1)
		}
		registrar = r
	}

	discoverCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	peerAddrs, err := discoverer.Discover(discoverCtx)
	cancel()
	if err != nil {
		lgr.Error("failed to resolve bootstrap peers", logger.F("err", err))
		grpcServer.Stop()
		os.Exit(1)
	}
	lgr.Info("resolved bootstrap peers", logger.F("peers", peerAddrs))

	if len(peerAddrs) == 0 {
		state.CreateNewDHT()
	} else {
		peers := make([]*domain.Node, len(peerAddrs))
		for i, a := range peerAddrs {
			peers[i] = &domain.Node{ID: space.Zero(), Addr: a}
		}
		joinCtx, joinCancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := state.Join(joinCtx, peers)
		joinCancel()
		if err != nil {
			lgr.Error("failed to join ring", logger.F("err", err))
			grpcServer.Stop()
			os.Exit(1)
		}
		lgr.Debug("joined ring")
	}

	if registrar != nil {
		registerCtx, registerCancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := registrar.Register(registerCtx, self)
		registerCancel()
		if err != nil {
			lgr.Warn("failed to register node", logger.F("err", err))
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := registrar.Deregister(ctx, self); err != nil {
					lgr.Warn("failed to deregister node", logger.F("err", err))
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	lifecycle := chord.NewLifecycle(state, chord.Intervals{
		Stabilize:        cfg.DHT.FaultTolerance.StabilizationInterval,
		FixFingers:       cfg.DHT.FingerTable.FixInterval,
		CheckPredecessor: cfg.DHT.FaultTolerance.CheckPredecessorPeriod,
		ResourceRepair:   cfg.DHT.Storage.RepairInterval,
	})
	lifecycle.Start()

	select {
	case <-ctx.Done():
		lgr.Info("shutdown signal received, stopping gracefully")
		stop()
		lifecycle.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
			lgr.Info("server stopped gracefully")
		case <-shutdownCtx.Done():
			lgr.Warn("graceful stop timed out, forcing shutdown")
			grpcServer.Stop()
		}
		cancel()

	case err := <-serveErr:
		lgr.Error("gRPC server terminated unexpectedly", logger.F("err", err))
		stop()
		lifecycle.Stop()
		os.Exit(1)
	}
}
