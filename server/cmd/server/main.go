package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"github.com/nexusboard/nexusboard/pkg/notifyrpc"
	"github.com/nexusboard/nexusboard/server/internal/api"
	"github.com/nexusboard/nexusboard/server/internal/auth"
	"github.com/nexusboard/nexusboard/server/internal/broadcast"
	"github.com/nexusboard/nexusboard/server/internal/config"
	"github.com/nexusboard/nexusboard/server/internal/metrics"
	"github.com/nexusboard/nexusboard/server/internal/notify"
	"github.com/nexusboard/nexusboard/server/internal/registry"
	"github.com/nexusboard/nexusboard/server/internal/session"
	"github.com/nexusboard/nexusboard/server/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	envErr := godotenv.Load(*envFile)

	var level slog.LevelVar
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	if envErr != nil {
		slog.Debug("no env file loaded, using process environment", "path", *envFile)
	}
	slog.Info("nexusboard-gateway starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Server.Level())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"grpc_port", cfg.Server.GRPCPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"notify_mode", cfg.Server.Notify.Mode,
		"allowed_origins", cfg.Server.AllowedOrigins,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Core: registry -> broadcaster -> session handler.
	reg := registry.New()
	m := metrics.New(reg.Stats)
	bc := broadcast.New(reg, m)

	t := cfg.Server.Transport
	opts := ws.Options{
		SendBuffer:     t.SendBuffer,
		MaxMessageSize: t.MaxMessageSize,
		PongWait:       t.PongWait,
		WriteTimeout:   t.WriteTimeout,
		RateBurst:      t.RateLimit.Burst,
		RateRefill:     t.RateLimit.RefillInterval,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	var authz session.Authorizer
	if cfg.Server.Auth.Mode == "jwt" {
		secret := cfg.Server.Auth.Secret()
		if secret == "" {
			slog.Error("jwt auth enabled but secret env var is empty", "env", cfg.Server.Auth.SecretEnv)
			os.Exit(1)
		}
		access := auth.NewBoardAccess()
		opts.Verifier = auth.NewVerifier(secret)
		opts.Access = access
		authz = access
	}

	sessions := session.NewHandler(reg, bc, authz, m)
	hub := ws.New(sessions, opts)
	go hub.Run(ctx)

	// gRPC NotifyBoard server with optional API key interceptor.
	interceptor := auth.APIKeyInterceptor(
		cfg.Server.Notify.Mode,
		cfg.Server.Notify.EffectiveHeader(),
		cfg.Server.Notify.Key(),
	)
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(interceptor))
	notifyrpc.RegisterNotifyServer(grpcSrv, notify.New(bc, m))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		slog.Error("failed to listen on gRPC port",
			"port", cfg.Server.GRPCPort, "err", err)
		os.Exit(1)
	}

	go func() {
		slog.Info("gRPC notify listening", "port", cfg.Server.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("gRPC server stopped", "err", err)
		}
	}()

	// Combined HTTP server: WebSocket gateway + REST API + metrics.
	httpMux := http.NewServeMux()
	httpMux.Handle("/ws", hub)
	httpMux.Handle("/api/", api.New(reg))
	httpMux.Handle("/metrics", m)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	// Hot reload: log level and origin allow-list apply without restart.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			level.Set(next.Server.Level())
			hub.SetAllowedOrigins(next.Server.AllowedOrigins)
			slog.Debug("applied reloaded config",
				"log_level", next.Server.LogLevel,
				"allowed_origins", next.Server.AllowedOrigins,
			)
		})
		if err != nil {
			slog.Warn("config watch stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("nexusboard-gateway shutting down", "clients", hub.Count())

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	grpcSrv.GracefulStop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
