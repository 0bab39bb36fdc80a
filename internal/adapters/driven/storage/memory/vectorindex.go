// Package memory provides in-memory storage adapters: the brute-force
// cosine vector index and the answer cache. State lives for the process
// lifetime only.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

type vectorRecord struct {
	chunk     domain.Chunk
	embedding []float32
}

// VectorIndex is an in-memory vector store with exact cosine search.
// Documents in scope hold a few thousand chunks at most, where a linear
// scan beats the bookkeeping cost of an approximate index.
type VectorIndex struct {
	mu   sync.RWMutex
	docs map[string]map[string]vectorRecord // documentID -> chunkID -> record
}

// NewVectorIndex creates an empty index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		docs: make(map[string]map[string]vectorRecord),
	}
}

// Add inserts chunks with their embeddings. An ID that already exists is
// left untouched, which makes re-ingestion idempotent.
func (v *VectorIndex) Add(_ context.Context, chunks []domain.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return domain.ErrInvalidInput
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for i, c := range chunks {
		recs, ok := v.docs[c.DocumentID]
		if !ok {
			recs = make(map[string]vectorRecord)
			v.docs[c.DocumentID] = recs
		}
		if _, exists := recs[c.ID]; exists {
			continue
		}
		recs[c.ID] = vectorRecord{chunk: c, embedding: embeddings[i]}
	}
	return nil
}

// Search returns the k chunks of one document nearest to the query vector,
// by descending cosine similarity.
func (v *VectorIndex) Search(_ context.Context, documentID string, query []float32, k int) ([]domain.ScoredChunk, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	recs := v.docs[documentID]
	if len(recs) == 0 || k <= 0 {
		return nil, nil
	}

	scored := make([]domain.ScoredChunk, 0, len(recs))
	for _, rec := range recs {
		scored = append(scored, domain.ScoredChunk{
			Chunk: rec.chunk,
			Score: cosineSimilarity(query, rec.embedding),
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		// Stable tie-break so equal scores do not reorder between calls.
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count returns the number of chunks stored for a document.
func (v *VectorIndex) Count(_ context.Context, documentID string) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.docs[documentID]), nil
}

// Close releases resources.
func (v *VectorIndex) Close() error {
	return nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
