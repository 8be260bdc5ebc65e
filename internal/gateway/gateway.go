// Package gateway assembles the printer sessions and the serving surface
// into one runnable unit.
package gateway

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	httpserver "github.com/bambui-io/bambui/internal/gateway/server/http"
	"github.com/bambui-io/bambui/internal/gateway/session"
	"github.com/bambui-io/bambui/internal/gateway/storage"
	"github.com/bambui-io/bambui/pkg/log"
)

// Server is the common interface for the gateway's sub-servers.
type Server interface {
	Start(ctx context.Context) error
}

// Gateway owns the printer registry and the servers built on top of it.
type Gateway struct {
	registry *session.Registry
	library  *storage.Library
	servers  []Server
}

// NewGateway builds the gateway from validated configuration.
func (cfg *Config) NewGateway() (*Gateway, error) {
	registry, err := session.NewRegistry(cfg.Printers, cfg.MqttOptions, cfg.FtpOptions)
	if err != nil {
		return nil, fmt.Errorf("build printer registry: %w", err)
	}

	var library *storage.Library
	if cfg.S3Options.Enabled() {
		library, err = storage.NewLibrary(cfg.S3Options)
		if err != nil {
			return nil, fmt.Errorf("init print file library: %w", err)
		}
	}

	var servers []Server
	servers = append(servers, httpserver.NewServer(cfg.HttpOptions, registry, library))

	return &Gateway{
		registry: registry,
		library:  library,
		servers:  servers,
	}, nil
}

// Run launches the servers and blocks until the context ends or a server
// fails.
func (g *Gateway) Run(ctx context.Context) error {
	if g.library != nil {
		if err := g.library.EnsureBucket(ctx); err != nil {
			return err
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, s := range g.servers {
		srv := s
		eg.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("Gateway started", "printers", len(g.registry.Identities()))
	return eg.Wait()
}
