package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/elara-ai/affect/internal/models"
)

const (
	qdrantDialTimeout  = 10 * time.Second
	qdrantReadTimeout  = 10 * time.Second
	qdrantWriteTimeout = 30 * time.Second
)

// QdrantIndex implements Index over Qdrant's gRPC API. Memory items are
// stored by the memory pipeline (a separate process); this client only
// searches and reads payloads, including the emotion tag written at
// capture time.
type QdrantIndex struct {
	conn       *grpc.ClientConn
	collName   string
	logger     *slog.Logger
	points     pb.PointsClient
	collection pb.CollectionsClient
}

// NewQdrantIndex connects to Qdrant and verifies the connection with a
// lightweight RPC.
func NewQdrantIndex(host string, port int, collection string, useTLS bool, logger *slog.Logger) (*QdrantIndex, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	opts := []grpc.DialOption{}
	if !useTLS {
		logger.Warn("Qdrant connection using insecure credentials (no TLS)")
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to Qdrant at %s: %v", ErrUnavailable, addr, err)
	}

	dialCtx, dialCancel := context.WithTimeout(context.Background(), qdrantDialTimeout)
	defer dialCancel()
	if _, err := pb.NewCollectionsClient(conn).List(dialCtx, &pb.ListCollectionsRequest{}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: verifying Qdrant connection at %s: %v", ErrUnavailable, addr, err)
	}

	logger.Info("connected to Qdrant", "addr", addr, "collection", collection)

	return &QdrantIndex{
		conn:       conn,
		collName:   collection,
		logger:     logger,
		points:     pb.NewPointsClient(conn),
		collection: pb.NewCollectionsClient(conn),
	}, nil
}

// EnsureCollection verifies the collection exists and creates payload
// indexes for the fields recall filters on. Index creation runs
// concurrently; failures are logged, not fatal.
func (q *QdrantIndex) EnsureCollection(ctx context.Context) error {
	rctx, rcancel := context.WithTimeout(ctx, qdrantReadTimeout)
	defer rcancel()
	resp, err := q.collection.List(rctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("%w: listing collections: %v", ErrUnavailable, err)
	}
	for _, c := range resp.GetCollections() {
		if c.GetName() == q.collName {
			return nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, field := range []string{"emotion", "created_at"} {
		g.Go(func() error {
			ictx, icancel := context.WithTimeout(gctx, qdrantWriteTimeout)
			defer icancel()
			_, err := q.points.CreateFieldIndex(ictx, &pb.CreateFieldIndexCollection{
				CollectionName: q.collName,
				FieldName:      field,
				FieldType:      pb.FieldType_FieldTypeKeyword.Enum(),
			})
			if err != nil {
				q.logger.Warn("creating field index", "field", field, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Search finds the k nearest memory items to the query embedding.
func (q *QdrantIndex) Search(ctx context.Context, query Query, k int) ([]models.SearchResult, error) {
	if len(query.Embedding) == 0 {
		return nil, &models.ValidationError{Field: "embedding", Constraint: "is required for qdrant search"}
	}

	ctx, cancel := context.WithTimeout(ctx, qdrantReadTimeout)
	defer cancel()

	resp, err := q.points.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collName,
		Vector:         query.Embedding,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: searching: %v", ErrUnavailable, err)
	}

	results := make([]models.SearchResult, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		item := payloadToItem(point.GetId().GetUuid(), point.GetPayload())
		results = append(results, models.SearchResult{
			Item:       item,
			Similarity: float64(point.GetScore()),
		})
	}
	return results, nil
}

// Close closes the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}

// payloadToItem converts a Qdrant payload into a MemoryItem. The emotion
// tag is reconstructed only when all three affect fields are present.
func payloadToItem(id string, payload map[string]*pb.Value) models.MemoryItem {
	item := models.MemoryItem{ID: id}

	if v, ok := payload["content"]; ok {
		item.Content = v.GetStringValue()
	}
	if v, ok := payload["created_at"]; ok {
		if ts, err := time.Parse(time.RFC3339Nano, v.GetStringValue()); err == nil {
			item.CreatedAt = ts
		}
	}

	valence, vok := payload["tag_valence"]
	energy, eok := payload["tag_energy"]
	openness, ook := payload["tag_openness"]
	if vok && eok && ook {
		tag := &models.MemoryEmotionTag{
			Valence:  valence.GetDoubleValue(),
			Energy:   energy.GetDoubleValue(),
			Openness: openness.GetDoubleValue(),
		}
		if v, ok := payload["emotion"]; ok {
			tag.Emotion = v.GetStringValue()
		}
		item.EmotionTag = tag
	}
	return item
}
