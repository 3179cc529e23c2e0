package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agents-backend/application/ports"
	"agents-backend/infrastructure/di"
)

// ChatHistoryModuleClass is the type-registry identifier for the
// chat-history repository.
const ChatHistoryModuleClass = "persistence.mongo.ChatHistoryRepository"

// ChatHistoryOptions are the constructor parameters. Client is populated
// by the registry from the client_ref parameter.
type ChatHistoryOptions struct {
	Client     *Client `mapstructure:"client"`
	Collection string  `mapstructure:"collection"`
}

type messageDoc struct {
	SessionID string `bson:"session_id"`
	Role      string `bson:"role"`
	Content   string `bson:"content"`
	Seq       int64  `bson:"seq"`
}

// ChatHistoryRepository persists conversation turns in a Mongo collection.
type ChatHistoryRepository struct {
	client     *Client
	collection string
}

var _ ports.ChatHistoryRepository = (*ChatHistoryRepository)(nil)

// NewChatHistoryRepository creates a repository from typed options.
func NewChatHistoryRepository(opts ChatHistoryOptions) (*ChatHistoryRepository, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("mongo chat history: client is required (declare client_ref)")
	}
	if opts.Collection == "" {
		opts.Collection = "chat_history"
	}
	return &ChatHistoryRepository{client: opts.Client, collection: opts.Collection}, nil
}

// RegisterChatHistory adds the repository component to the type registry.
func RegisterChatHistory(types *di.TypeRegistry) {
	types.MustRegisterComponent(ChatHistoryModuleClass, di.Constructors{
		New: func(_ context.Context, params map[string]any) (any, error) {
			var opts ChatHistoryOptions
			if err := di.DecodeParams(params, &opts); err != nil {
				return nil, err
			}
			return NewChatHistoryRepository(opts)
		},
	})
}

// Append stores one conversation turn.
func (r *ChatHistoryRepository) Append(ctx context.Context, message ports.StoredMessage) error {
	coll := r.client.Collection(r.collection)

	seq, err := coll.CountDocuments(ctx, bson.D{{Key: "session_id", Value: message.SessionID}})
	if err != nil {
		return fmt.Errorf("mongo chat history: counting turns: %w", err)
	}

	_, err = coll.InsertOne(ctx, messageDoc{
		SessionID: message.SessionID,
		Role:      message.Role,
		Content:   message.Content,
		Seq:       seq,
	})
	if err != nil {
		return fmt.Errorf("mongo chat history: appending turn: %w", err)
	}
	return nil
}

// Messages returns the turns of one session in insertion order.
func (r *ChatHistoryRepository) Messages(ctx context.Context, sessionID string) ([]ports.StoredMessage, error) {
	coll := r.client.Collection(r.collection)

	cursor, err := coll.Find(ctx,
		bson.D{{Key: "session_id", Value: sessionID}},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo chat history: listing turns: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo chat history: decoding turns: %w", err)
	}

	messages := make([]ports.StoredMessage, len(docs))
	for i, doc := range docs {
		messages[i] = ports.StoredMessage{
			SessionID: doc.SessionID,
			Role:      doc.Role,
			Content:   doc.Content,
		}
	}
	return messages, nil
}

// Sessions returns the distinct session identifiers with stored history.
func (r *ChatHistoryRepository) Sessions(ctx context.Context) ([]string, error) {
	coll := r.client.Collection(r.collection)

	raw, err := coll.Distinct(ctx, "session_id", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongo chat history: listing sessions: %w", err)
	}

	sessions := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}
