// Package qdrant adapts the Qdrant vector database (gRPC client) to the
// ports.VectorStore interface.
package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"agents-backend/application/ports"
	"agents-backend/infrastructure/di"
)

// ModuleClass is the type-registry identifier for this adapter.
const ModuleClass = "vectorstore.qdrant.Store"

// Options are the constructor parameters accepted from configuration.
type Options struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

// Store wraps a Qdrant collection behind ports.VectorStore.
type Store struct {
	client     *qdrant.Client
	collection string
}

var (
	_ ports.VectorStore = (*Store)(nil)
	_ ports.Disposable  = (*Store)(nil)
)

// New connects to Qdrant from typed options.
func New(opts Options) (*Store, error) {
	if opts.Host == "" {
		opts.Host = "localhost"
	}
	if opts.Port == 0 {
		opts.Port = 6334
	}
	if opts.Collection == "" {
		return nil, fmt.Errorf("qdrant store: collection is required")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   opts.Host,
		Port:   opts.Port,
		APIKey: opts.APIKey,
		UseTLS: opts.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:    30 * time.Second,
				Timeout: 10 * time.Second,
			}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &Store{client: client, collection: opts.Collection}, nil
}

// Register adds this adapter to the type registry under ModuleClass.
func Register(types *di.TypeRegistry) {
	types.MustRegisterComponent(ModuleClass, di.Constructors{
		New: func(_ context.Context, params map[string]any) (any, error) {
			var opts Options
			if err := di.DecodeParams(params, &opts); err != nil {
				return nil, err
			}
			return New(opts)
		},
	})
}

// Upsert writes one point with its payload.
func (s *Store) Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

// Search returns the closest points to the query vector.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]ports.ScoredDocument, error) {
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w", err)
	}

	docs := make([]ports.ScoredDocument, len(points))
	for i, point := range points {
		docs[i] = ports.ScoredDocument{
			ID:      pointID(point.Id),
			Score:   point.Score,
			Payload: payloadMap(point.Payload),
		}
	}
	return docs, nil
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func payloadMap(payload map[string]*qdrant.Value) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		switch v := value.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[key] = v.StringValue
		case *qdrant.Value_IntegerValue:
			out[key] = v.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[key] = v.DoubleValue
		case *qdrant.Value_BoolValue:
			out[key] = v.BoolValue
		default:
			out[key] = value.String()
		}
	}
	return out
}
