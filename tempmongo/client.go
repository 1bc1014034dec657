package tempmongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// buildURI renders a connection string. Socket paths are percent-encoded
// including slashes, which is how the driver recognizes them.
func buildURI(network, endpoint string) string {
	if network == "unix" {
		return "mongodb://" + strings.ReplaceAll(url.PathEscape(endpoint), "/", "%2F")
	}
	return "mongodb://" + endpoint
}

// ClientOptions returns driver options for a direct connection to the instance.
func (i *Instance) ClientOptions() *options.ClientOptions {
	return options.Client().
		ApplyURI(i.uri).
		SetDirect(true).
		SetConnectTimeout(i.cfg.ConnectTimeout).
		SetServerSelectionTimeout(i.cfg.StartupTimeout)
}

// Connect opens an additional, independent client. The caller disconnects it.
func (i *Instance) Connect(ctx context.Context) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, i.ClientOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", i.endpoint, err)
	}
	return client, nil
}

// connect builds the client and confirms the handshake with a ping.
func (i *Instance) connect(ctx context.Context) (*mongo.Client, error) {
	client, err := i.Connect(ctx)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, i.cfg.StartupTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping server: %w", err)
	}
	return client, nil
}
