// Package agent keeps the local host registered in a remote catalog with its
// current facts.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/metorial/tattr/internal/logger"
	"github.com/metorial/tattr/internal/models"
)

// Registrar upserts a host into the catalog. *rpc.Client implements it.
type Registrar interface {
	RegisterHost(ctx context.Context, hostname string, tags []string, attrs map[string]string) (*models.Host, error)
}

type Agent struct {
	registrar Registrar
	facts     FactSource
	tags      []string
}

func New(registrar Registrar, facts FactSource, tags []string) *Agent {
	return &Agent{registrar: registrar, facts: facts, tags: tags}
}

// RegisterOnce collects facts and registers the host with them.
func (a *Agent) RegisterOnce(ctx context.Context) (*models.Host, error) {
	facts, err := a.facts.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect facts: %w", err)
	}

	host, err := a.registrar.RegisterHost(ctx, a.facts.Hostname(), a.tags, facts)
	if err != nil {
		return nil, fmt.Errorf("register host: %w", err)
	}

	logger.Debugw("Registered host", "host", host.Hostname, "tags", host.Tags, "facts", len(facts))
	return host, nil
}

// Run registers immediately and then every interval until ctx is done or a
// registration fails.
func (a *Agent) Run(ctx context.Context, interval time.Duration) error {
	if _, err := a.RegisterOnce(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.RegisterOnce(ctx); err != nil {
				return err
			}
		}
	}
}
