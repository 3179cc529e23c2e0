// Package mongo provides the MongoDB-backed components: the shared client,
// the chat-history repository and the checkpointer. The repository and the
// checkpointer declare their dependency on the client in configuration via
// a client_ref parameter, which the component registry resolves to the
// live *Client before construction.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agents-backend/application/ports"
	"agents-backend/infrastructure/di"
)

// ClientModuleClass is the type-registry identifier for the client.
const ClientModuleClass = "persistence.mongo.Client"

// ClientOptions are the constructor parameters accepted from configuration.
type ClientOptions struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// Client is the shared MongoDB connection component. Other components
// reference it via client_ref instead of opening their own connections.
type Client struct {
	client   *mongo.Client
	database string
}

var _ ports.ContextDisposable = (*Client)(nil)

// NewClient connects to MongoDB from typed options.
func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("mongo client: uri is required")
	}
	if opts.Database == "" {
		opts.Database = "agents"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	return &Client{client: client, database: opts.Database}, nil
}

// RegisterClient adds the client component to the type registry.
func RegisterClient(types *di.TypeRegistry) {
	types.MustRegisterComponent(ClientModuleClass, di.Constructors{
		New: func(ctx context.Context, params map[string]any) (any, error) {
			var opts ClientOptions
			if err := di.DecodeParams(params, &opts); err != nil {
				return nil, err
			}
			return NewClient(ctx, opts)
		},
	})
}

// Collection returns a collection handle in the configured database.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.client.Database(c.database).Collection(name)
}

// Shutdown disconnects the underlying client.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
