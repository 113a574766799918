package cortex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// QdrantStore indexes pattern embeddings in a Qdrant collection,
// carrying the rest of the CortexPattern as JSON in the point's
// payload so SearchSimilar can reconstruct a full domain.CortexPattern
// without a second round-trip to repo.PatternRepository. The
// collection is created lazily on first Upsert, with cosine distance.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore dials host:port with the given collection name.
func NewQdrantStore(host string, port int, apiKey string, useTLS bool, collection string) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("cortex: failed to create qdrant client for %s:%d: %w", host, port, err)
	}
	return &QdrantStore{client: client, collection: collection}, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context, dims int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("cortex: failed to check collection %q: %w", s.collection, err)
	}
	if exists {
		return nil
	}
	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (s *QdrantStore) Index(ctx context.Context, p domain.CortexPattern) error {
	if len(p.Embedding) == 0 {
		return fmt.Errorf("cortex: pattern %s has no embedding to index", p.ID)
	}
	if err := s.ensureCollection(ctx, len(p.Embedding)); err != nil {
		return err
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	payloadValue, err := qdrant.NewValue(string(raw))
	if err != nil {
		return err
	}

	vector := make([]float32, len(p.Embedding))
	for i, v := range p.Embedding {
		vector[i] = float32(v)
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(string(p.ID)),
			Vectors: qdrant.NewVectors(vector...),
			Payload: map[string]*qdrant.Value{"pattern": payloadValue},
		}},
	})
	if err != nil {
		return fmt.Errorf("cortex: failed to upsert pattern %s: %w", p.ID, err)
	}
	return nil
}

func (s *QdrantStore) Remove(ctx context.Context, id domain.PatternID) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewID(string(id))),
	})
	return err
}

func (s *QdrantStore) SearchSimilar(ctx context.Context, embedding []float64, topK int) ([]SearchMatch, error) {
	vector := make([]float32, len(embedding))
	for i, v := range embedding {
		vector[i] = float32(v)
	}

	pointsClient := s.client.GetPointsClient()
	result, err := pointsClient.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("cortex: failed to search collection %q: %w", s.collection, err)
	}

	matches := make([]SearchMatch, 0, len(result.Result))
	for _, point := range result.Result {
		payload, ok := point.Payload["pattern"]
		if !ok {
			continue
		}
		var p domain.CortexPattern
		if err := json.Unmarshal([]byte(payload.GetStringValue()), &p); err != nil {
			continue
		}
		matches = append(matches, SearchMatch{Pattern: p, Similarity: float64(point.Score)})
	}
	return matches, nil
}
