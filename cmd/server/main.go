package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"teltonika-codec/internal/config"
	"teltonika-codec/internal/dispatcher"
	"teltonika-codec/internal/grpcclient"
	"teltonika-codec/internal/link"
	"teltonika-codec/internal/observability"
	"teltonika-codec/internal/server"
	"teltonika-codec/internal/store"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.LogLevel)
	logger.Info("Starting teltonika-codec gateway...", "port", cfg.TCPPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis before the server: command scheduling and tracking need it
	st, err := store.InitRedis(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.StateTTL)
	if err != nil {
		logger.Error("Redis init failed", "addr", cfg.RedisAddr, "error", err)
		return err
	}
	defer st.Close()

	var sinks []server.Sink
	if cfg.GRPCServer != "" {
		client, err := grpcclient.NewGRPCClient(cfg.GRPCServer)
		if err != nil {
			logger.Error("gRPC client init failed", "addr", cfg.GRPCServer, "error", err)
			return err
		}
		defer client.Close()
		sinks = append(sinks, client)
		logger.Info("forwarding enabled", "grpc_server", cfg.GRPCServer)
	}
	if cfg.ProxyAddr == "" {
		logger.Info("link: disabled (no proxy address configured)")
	} else {
		lc := link.New(cfg.ProxyAddr, logger)
		go lc.Run(ctx)
		sinks = append(sinks, lc)
	}

	go func() {
		if err := observability.StartMetricsServer(ctx, cfg.MetricsPort); err != nil {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	disp := dispatcher.New(st, logger)
	disp.RegisterDefaults()

	srv := server.New(logger, st, disp, server.Options{
		ReadTimeout:  cfg.ReadTimeout,
		MaxFrameSize: cfg.MaxFrameSize,
	}, sinks...)
	if err := srv.Start(ctx, ":"+cfg.TCPPort); err != nil {
		logger.Error("TCP server failed", "error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
