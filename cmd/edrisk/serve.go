package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ofeng1/datathon/internal/codec"
	"github.com/ofeng1/datathon/internal/embed"
	"github.com/ofeng1/datathon/internal/engine"
	"github.com/ofeng1/datathon/internal/httpapi"
	"github.com/ofeng1/datathon/internal/session"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var addr, grpcAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serves /chat, /health, /stats, /parse-ed-document and /metrics.
When a gRPC address is configured, the process also serves the standard
health service and the embedding RPC backed by the configured embedder.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if grpcAddr != "" {
				cfg.GRPCAddr = grpcAddr
			}

			eng, h, err := openEngine(cfg, logger)
			if err != nil {
				return err
			}
			defer h.Close()

			store, err := session.NewStore(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			mgr := session.NewManager(eng, store, logger)
			mgr.SetIdleTTL(cfg.SessionIdleTTL)
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg.Addr, cfg.GRPCAddr, eng, mgr, h, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (overrides config)")
	return cmd
}

// #region serve

func serve(ctx context.Context, addr, grpcAddr string, eng *engine.Engine, mgr *session.Manager, emb embed.Embedder, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpapi.NewServer(eng, mgr, logger).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var (
		gs  *grpc.Server
		lis net.Listener
	)
	if grpcAddr != "" {
		var err error
		lis, err = net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("grpc listen %s: %w", grpcAddr, err)
		}
		gs = grpc.NewServer()
		hs := health.NewServer()
		serving := healthpb.HealthCheckResponse_SERVING
		if !eng.Status().Ready() {
			serving = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", serving)
		healthpb.RegisterHealthServer(gs, hs)
		codec.RegisterEmbedServer(gs, codec.FuncServer{Fn: emb.Embed})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "component", "server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	if gs != nil {
		g.Go(func() error {
			logger.Info("grpc listening", "component", "server", "addr", grpcAddr)
			if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "component", "server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if gs != nil {
			gs.GracefulStop()
		}
		if err := srv.Shutdown(sctx); err != nil {
			logger.Warn("graceful shutdown failed", "component", "server", "error", err)
		}
		return nil
	})

	return g.Wait()
}

// #endregion serve
