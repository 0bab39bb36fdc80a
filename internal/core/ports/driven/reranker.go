package driven

import (
	"context"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
)

// Reranker scores (query, passage) pairs with a cross-encoder.
// More accurate than first-stage vector similarity, and more expensive,
// so it only sees the small candidate set from the vector search.
type Reranker interface {
	// Rerank returns the candidates reordered by descending relevance to the
	// query, with updated scores. topK limits the output length.
	Rerank(ctx context.Context, query string, candidates []domain.ScoredChunk, topK int) ([]domain.ScoredChunk, error)

	// Close releases resources.
	Close() error
}
