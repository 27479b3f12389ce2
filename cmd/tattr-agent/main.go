package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/metorial/tattr/internal/agent"
	"github.com/metorial/tattr/internal/config"
	"github.com/metorial/tattr/internal/discovery"
	"github.com/metorial/tattr/internal/logger"
	"github.com/metorial/tattr/internal/rpc"
)

const (
	defaultRetryDelay    = 5 * time.Second
	defaultWatchInterval = 30 * time.Second
)

func main() {
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "tattr-agent",
		Short:        "Keep this host registered in tattrd with its facts",
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

	if cfg.Agent.Server == "" && cfg.Consul.Address == "" {
		return errors.New("either agent.server or consul.address must be set")
	}

	facts, err := agent.NewFactCollector(cfg.Agent.Hostname)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("Starting agent for %s", facts.Hostname())

	// addrs stays nil with a fixed server, so only the retry timer fires
	var addrs <-chan string
	addr := cfg.Agent.Server
	if addr != "" {
		logger.Infof("Using tattrd at %s", addr)
	} else {
		logger.Infof("Using Consul service discovery at %s", cfg.Consul.Address)
		d, err := discovery.NewDiscovery(cfg.Consul.Address)
		if err != nil {
			return err
		}
		addrs = d.Watch(ctx, cfg.Consul.ServiceName, defaultWatchInterval)

		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case addr, ok = <-addrs:
			if !ok {
				return nil
			}
		}
	}

	for {
		err := runAgent(ctx, addr, facts, cfg.Agent.Tags, cfg.Agent.Interval)
		if ctx.Err() != nil {
			logger.Infof("Shutting down")
			return nil
		}
		logger.Warnf("Agent error: %v, retrying...", err)

		select {
		case <-ctx.Done():
			logger.Infof("Shutting down")
			return nil
		case next, ok := <-addrs:
			if !ok {
				return nil
			}
			addr = next
		case <-time.After(defaultRetryDelay):
		}
	}
}

func runAgent(ctx context.Context, addr string, facts agent.FactSource, tags []string, interval time.Duration) error {
	logger.Infof("Connecting to tattrd at %s", addr)

	client, err := rpc.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	return agent.New(client, facts, tags).Run(ctx, interval)
}
