package storage

import (
	"context"
	"crypto/tls"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/campmanager/backend/internal/config"
)

// Dialer returns a DialFunc that connects with the Stable API v1 and pings
// the primary before handing the client out.
func Dialer(cfg config.MongoConfig) DialFunc {
	return func(ctx context.Context) (*mongo.Client, error) {
		if cfg.URI == "" {
			return nil, fmt.Errorf("mongo: empty MONGODB_URI")
		}
		if cfg.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
			defer cancel()
		}

		client, err := mongo.Connect(ctx, clientOptions(cfg))
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo ping: %w", err)
		}
		return client, nil
	}
}

func clientOptions(cfg config.MongoConfig) *options.ClientOptions {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1).
			SetStrict(true).
			SetDeprecationErrors(true))
	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}
