package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/metorial/tattr/internal/api"
	"github.com/metorial/tattr/internal/catalog"
	"github.com/metorial/tattr/internal/config"
	"github.com/metorial/tattr/internal/discovery"
	"github.com/metorial/tattr/internal/logger"
	"github.com/metorial/tattr/internal/rpc"
)

func main() {
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "tattrd",
		Short:        "Serve the tattr catalog over HTTP and gRPC",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgFile)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "Config file (default: tattr.yaml in ., $HOME/.tattr or /etc/tattr)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := catalog.Open(ctx, cfg.Database.URI,
		catalog.WithTimeout(cfg.Database.Timeout),
		catalog.WithMaxOpenConns(cfg.Database.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer c.Close()

	if err := c.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap catalog: %w", err)
	}
	logger.Infof("Opened %s catalog", c.Driver())

	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	httpLis, err := net.Listen("tcp", cfg.Server.HTTPAddr)
	if err != nil {
		grpcLis.Close()
		return fmt.Errorf("listen http: %w", err)
	}

	grpcServer := grpc.NewServer()
	rpc.RegisterCatalogServer(grpcServer, rpc.NewServer(c))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(rpc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	httpServer := &http.Server{
		Handler:           api.NewRouter(c, api.LoggingMiddleware),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Consul.Address != "" {
		registrar, err := discovery.NewRegistrar(cfg.Consul.Address, cfg.Consul.ServiceName)
		if err != nil {
			logger.Warnf("Consul registration disabled: %v", err)
		} else if err := registrar.Register(cfg.Consul.AdvertiseAddress, listenPort(grpcLis), listenPort(httpLis)); err != nil {
			logger.Warnf("Failed to register with Consul: %v", err)
		} else {
			defer func() {
				if err := registrar.Deregister(); err != nil {
					logger.Warnf("Failed to deregister from Consul: %v", err)
				}
			}()
		}
	}

	errChan := make(chan error, 2)
	go func() {
		logger.Infof("gRPC server listening on %s", grpcLis.Addr())
		errChan <- grpcServer.Serve(grpcLis)
	}()
	go func() {
		logger.Infof("HTTP API server listening on %s", httpLis.Addr())
		if err := httpServer.Serve(httpLis); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serveErr error
	select {
	case serveErr = <-errChan:
		logger.Errorf("Server stopped: %v", serveErr)
	case <-ctx.Done():
		logger.Infof("Shutting down")
	}

	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("HTTP shutdown: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		grpcServer.Stop()
	}

	return serveErr
}

func listenPort(lis net.Listener) int {
	if addr, ok := lis.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}
