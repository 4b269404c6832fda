package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/easyref/easyref-api/internal/core/ports"
	"github.com/easyref/easyref-api/internal/infrastructure/db/mongo"
	"github.com/easyref/easyref-api/internal/infrastructure/rpc"
	"github.com/easyref/easyref-api/internal/pkg/config"
)

// openBackend connects the storage adapter selected by cfg.Backend. The
// returned func releases it.
func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.Backend, func(), error) {
	switch cfg.Backend {
	case config.BackendRPC:
		return rpc.New(cfg.RPC.URL, cfg.RPC.ServiceKey, cfg.RPC.Timeout, log), func() {}, nil
	case config.BackendMongo:
		b, err := mongo.Open(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, err
		}
		return b, func() {
			if err := b.Close(context.Background()); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect")
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
