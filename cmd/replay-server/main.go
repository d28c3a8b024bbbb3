package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/crimsonsky/ai-player-sub001/internal/config"
	"github.com/crimsonsky/ai-player-sub001/internal/container"
	"github.com/crimsonsky/ai-player-sub001/internal/logging"
	"github.com/crimsonsky/ai-player-sub001/internal/replay"
	"github.com/crimsonsky/ai-player-sub001/internal/replaysvc"
)

// #region main
func main() {
	cfgPath := flag.String("config", os.Getenv("GAMESTATE_CONFIG"), "path to YAML config")
	grpcAddr := flag.String("grpc-addr", "", "override server.grpc_addr")
	fresh := flag.Bool("fresh", false, "ignore an existing snapshot")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *grpcAddr != "" {
		cfg.Server.GRPCAddr = *grpcAddr
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	if err := config.EnsureDataDirs(cfg.DataDir); err != nil {
		log.Fatalf("prepare data dir: %v", err)
	}

	store, err := openStore(cfg, *fresh, logger)
	if err != nil {
		log.Fatalf("open replay store: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, store, logger); err != nil {
		log.Fatalf("replay server: %v", err)
	}
}
// #endregion main

// #region store
func openStore(cfg config.Config, fresh bool, logger *slog.Logger) (*replay.Store, error) {
	opts := []replay.Option{replay.WithName("server"), replay.WithLogger(logger)}
	if cfg.Replay.Seed != 0 {
		opts = append(opts, replay.WithSeed(cfg.Replay.Seed))
	}
	if !fresh {
		store, err := replay.Open(cfg.Replay.Snapshot, opts...)
		switch {
		case err == nil:
			if store.Capacity() != cfg.Replay.Capacity || store.StateWidth() != cfg.Replay.StateWidth {
				return nil, fmt.Errorf("%w: snapshot %s is capacity %d width %d, config wants %d/%d",
					replay.ErrStrategyMismatch, cfg.Replay.Snapshot,
					store.Capacity(), store.StateWidth(), cfg.Replay.Capacity, cfg.Replay.StateWidth)
			}
			logger.Info("restored replay snapshot", "path", cfg.Replay.Snapshot, "size", store.Len())
			return store, nil
		case errors.Is(err, container.ErrNotFound):
			logger.Info("no replay snapshot, starting empty", "path", cfg.Replay.Snapshot)
		default:
			return nil, err
		}
	}
	if cfg.Replay.StateWidth > 0 {
		opts = append(opts, replay.WithStateWidth(cfg.Replay.StateWidth))
	}
	return replay.New(cfg.Replay.Capacity, opts...)
}

func snapshot(store *replay.Store, cfg config.Config, logger *slog.Logger) {
	compression, _ := container.ParseCompression(cfg.Replay.Compression)
	if _, err := store.Save(cfg.Replay.Snapshot, container.WithCompression(compression), container.WithLogger(logger)); err != nil {
		logger.Error("snapshot failed", "path", cfg.Replay.Snapshot, "error", err)
	}
}
// #endregion store

// #region run
func run(ctx context.Context, cfg config.Config, store *replay.Store, logger *slog.Logger) error {
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}
	compression, _ := container.ParseCompression(cfg.Replay.Compression)

	srv := grpc.NewServer()
	replaysvc.RegisterReplayServiceServer(srv, replaysvc.NewServer(store, replaysvc.ServerConfig{
		SnapshotDir:  filepath.Dir(cfg.Replay.Snapshot),
		SnapshotName: filepath.Base(cfg.Replay.Snapshot),
		Compression:  compression,
		MinReady:     cfg.Replay.MinReady,
	}, logger))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(replaysvc.ServiceName, healthpb.HealthCheckResponse_SERVING)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("replay server listening", "addr", lis.Addr().String(), "capacity", store.Capacity(), "state_width", store.StateWidth())
		return srv.Serve(lis)
	})

	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("metrics listening", "addr", cfg.Server.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	if cfg.Server.SnapshotInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.Server.SnapshotInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					snapshot(store, cfg, logger)
				}
			}
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		hs.Shutdown()
		srv.GracefulStop()
		if metricsSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		snapshot(store, cfg, logger)
		return nil
	})

	return g.Wait()
}
// #endregion run
