package vectorspace

import (
	"context"
	"fmt"
	"log"

	chromem "github.com/philippgille/chromem-go"

	"unified-thinking/internal/types"
)

// NamedMatch is one result of ApproximateOracle.NearestNames.
type NamedMatch struct {
	Name       types.Identifier
	Similarity float64
}

// ApproximateOracle is the hdcStrategy=approximate kernel (SPEC_FULL.md
// §11 DOMAIN STACK): VSA bind/bundle/fromName math stays the same
// deterministic ExactOracle kernel, but every FromName'd vector is also
// indexed into an in-memory chromem-go collection so similarity search
// against the whole known-entity set runs as an approximate nearest-
// neighbor query instead of a linear scan, matching the teacher's
// knowledge.VectorStore wiring pattern. This is also the only strategy
// under which the Not-reference soft-negation match (§4.7(b)) runs.
type ApproximateOracle struct {
	*ExactOracle
	db         *chromem.DB
	collection *chromem.Collection
}

// NewApproximateOracle constructs an ApproximateOracle. chromem-go runs
// fully in-memory here; persistence is handled separately by
// internal/persistence when a SQLite path is configured.
func NewApproximateOracle(geometry int) (*ApproximateOracle, error) {
	db := chromem.NewDB()
	coll, err := db.CreateCollection("entities", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity collection: %w", err)
	}
	log.Printf("[DEBUG] vectorspace: approximate oracle initialized (in-memory chromem collection)")
	return &ApproximateOracle{
		ExactOracle: NewExactOracle(geometry),
		db:          db,
		collection:  coll,
	}, nil
}

// FromName derives the vector via the exact VSA kernel, then registers
// it in the chromem collection under its name so it participates in
// future NearestNames queries.
func (o *ApproximateOracle) FromName(name types.Identifier) types.OpaqueVector {
	v := o.ExactOracle.FromName(name)
	doc := chromem.Document{
		ID:        string(name),
		Content:   string(name),
		Embedding: v.Dims,
	}
	// AddDocument upserts; duplicate interning of the same name is a
	// harmless no-op rewrite.
	if err := o.collection.AddDocument(context.Background(), doc); err != nil {
		log.Printf("[WARN] vectorspace: failed to index %q in approximate collection: %v", name, err)
	}
	return v
}

// NearestNames runs an approximate nearest-neighbor query over every
// interned entity vector, returning up to limit matches sorted by
// descending similarity.
func (o *ApproximateOracle) NearestNames(ctx context.Context, v types.OpaqueVector, limit int) ([]NamedMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	count := o.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}
	results, err := o.collection.QueryEmbedding(ctx, v.Dims, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("approximate nearest-name query failed: %w", err)
	}
	out := make([]NamedMatch, 0, len(results))
	for _, r := range results {
		out = append(out, NamedMatch{
			Name:       types.Identifier(r.ID),
			Similarity: (float64(r.Similarity) + 1) / 2,
		})
	}
	return out, nil
}
