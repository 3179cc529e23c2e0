package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agents-backend/application/ports"
	"agents-backend/infrastructure/di"
)

// CheckpointerModuleClass is the type-registry identifier for the
// checkpointer.
const CheckpointerModuleClass = "persistence.mongo.Checkpointer"

// CheckpointerOptions are the constructor parameters. Client is populated
// by the registry from the client_ref parameter.
type CheckpointerOptions struct {
	Client     *Client `mapstructure:"client"`
	Collection string  `mapstructure:"collection"`
}

type checkpointDoc struct {
	SessionID string `bson:"session_id"`
	State     []byte `bson:"state"`
}

// Checkpointer stores opaque per-session agent state, one document per
// session, last write wins.
type Checkpointer struct {
	client     *Client
	collection string
}

var _ ports.Checkpointer = (*Checkpointer)(nil)

// NewCheckpointer creates a checkpointer from typed options.
func NewCheckpointer(opts CheckpointerOptions) (*Checkpointer, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("mongo checkpointer: client is required (declare client_ref)")
	}
	if opts.Collection == "" {
		opts.Collection = "checkpoints"
	}
	return &Checkpointer{client: opts.Client, collection: opts.Collection}, nil
}

// RegisterCheckpointer adds the checkpointer component to the type registry.
func RegisterCheckpointer(types *di.TypeRegistry) {
	types.MustRegisterComponent(CheckpointerModuleClass, di.Constructors{
		New: func(_ context.Context, params map[string]any) (any, error) {
			var opts CheckpointerOptions
			if err := di.DecodeParams(params, &opts); err != nil {
				return nil, err
			}
			return NewCheckpointer(opts)
		},
	})
}

// Put upserts the state for a session.
func (c *Checkpointer) Put(ctx context.Context, sessionID string, state []byte) error {
	_, err := c.client.Collection(c.collection).ReplaceOne(ctx,
		bson.D{{Key: "session_id", Value: sessionID}},
		checkpointDoc{SessionID: sessionID, State: state},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo checkpointer: saving state: %w", err)
	}
	return nil
}

// Get returns the stored state for a session, or nil when none exists.
func (c *Checkpointer) Get(ctx context.Context, sessionID string) ([]byte, error) {
	var doc checkpointDoc
	err := c.client.Collection(c.collection).FindOne(ctx,
		bson.D{{Key: "session_id", Value: sessionID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo checkpointer: loading state: %w", err)
	}
	return doc.State, nil
}
