package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultTimeout = 10 * time.Second
	appName        = "easyref-api"
)

// Config selects the deployment and database that back profiles, referrals
// and tags.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Open connects, waits for a ping and returns a Backend over cfg.Database
// with its unique indexes in place. Call Close to release the client.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName(appName).
		SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	b := NewBackend(client.Database(cfg.Database))
	b.client = client
	if err := b.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return b, nil
}

// Close disconnects the client opened by Open. It is a no-op for a Backend
// built with NewBackend.
func (b *Backend) Close(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	return b.client.Disconnect(ctx)
}
