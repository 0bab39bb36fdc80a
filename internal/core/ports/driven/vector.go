package driven

import (
	"context"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
)

// VectorIndex stores chunk embeddings and answers nearest-neighbour queries.
// Append-mostly: chunks are added once per document and never mutated.
type VectorIndex interface {
	// Add inserts chunks with their embeddings. Adding an ID that already
	// exists is a no-op, which keeps re-ingestion idempotent.
	Add(ctx context.Context, chunks []domain.Chunk, embeddings [][]float32) error

	// Search finds the k chunks nearest to the query vector within one
	// document, ordered by descending similarity.
	Search(ctx context.Context, documentID string, query []float32, k int) ([]domain.ScoredChunk, error)

	// Count returns the number of chunks stored for a document.
	// A non-zero count means the document is already ingested.
	Count(ctx context.Context, documentID string) (int, error)

	// Close releases resources.
	Close() error
}
