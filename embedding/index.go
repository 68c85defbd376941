package embedding

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// VectorIndexConfig configures VectorIndex. Mirrors the qdrant wiring
// pattern of the teacher's providers/vectorstores/qdrant package, pared
// down to a single upsert/query path.
type VectorIndexConfig struct {
	Client           *qdrant.Client
	CollectionName   string
	Dimensions       uint64
	InitializeSchema bool
}

// VectorIndex is an optional, Qdrant-backed nearest-neighbor index
// offering Upsert and Query on their own. BatchSimilarities does not
// consult it: it always computes cosine similarity for every candidate.
type VectorIndex struct {
	client     *qdrant.Client
	collection string
}

// NewVectorIndex connects to cfg.Client and, if requested, creates the
// target collection when it does not already exist.
func NewVectorIndex(ctx context.Context, cfg VectorIndexConfig) (*VectorIndex, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("embedding: qdrant client is required")
	}
	if cfg.CollectionName == "" {
		return nil, fmt.Errorf("embedding: collection name is required")
	}
	idx := &VectorIndex{client: cfg.Client, collection: cfg.CollectionName}

	if cfg.InitializeSchema {
		exists, err := cfg.Client.CollectionExists(ctx, cfg.CollectionName)
		if err != nil {
			return nil, fmt.Errorf("embedding: check collection: %w", err)
		}
		if !exists {
			err = cfg.Client.CreateCollection(ctx, &qdrant.CreateCollection{
				CollectionName: cfg.CollectionName,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     cfg.Dimensions,
					Distance: qdrant.Distance_Cosine,
				}),
			})
			if err != nil {
				return nil, fmt.Errorf("embedding: create collection: %w", err)
			}
		}
	}
	return idx, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func ptrUint64(v uint64) *uint64 { return &v }

// Upsert indexes text under vector, keyed by id (a fresh uuid when empty).
func (idx *VectorIndex) Upsert(ctx context.Context, id string, text string, vector []float64) error {
	if id == "" {
		id = uuid.NewString()
	}
	payload, err := qdrant.TryValueMap(map[string]any{"text": text})
	if err != nil {
		return fmt.Errorf("embedding: build payload: %w", err)
	}
	_, err = idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectors(toFloat32(vector)...),
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("embedding: upsert: %w", err)
	}
	return nil
}

// Query returns the topK nearest texts to vector, ordered by
// descending score.
func (idx *VectorIndex) Query(ctx context.Context, vector []float64, topK int) ([]Scored, error) {
	points, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.collection,
		Query:          qdrant.NewQuery(toFloat32(vector)...),
		Limit:          ptrUint64(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: query: %w", err)
	}
	out := make([]Scored, 0, len(points))
	for _, p := range points {
		text := ""
		if payload := p.GetPayload(); payload != nil {
			if v, ok := payload["text"]; ok {
				text = v.GetStringValue()
			}
		}
		out = append(out, Scored{Text: text, Score: float64(p.GetScore())})
	}
	return out, nil
}

// Close releases the underlying client connection.
func (idx *VectorIndex) Close() error {
	return idx.client.Close()
}
