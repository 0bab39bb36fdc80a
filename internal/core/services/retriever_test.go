package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
)

// mockEmbedder implements driven.EmbeddingService.
type mockEmbedder struct {
	embedErr   error
	batchErr   error
	batchCalls [][]string
	queries    []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.queries = append(m.queries, text)
	return []float32{1, 0, 0}, nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	m.batchCalls = append(m.batchCalls, texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return 3 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockIndex implements driven.VectorIndex.
type mockIndex struct {
	added      []domain.Chunk
	results    []domain.ScoredChunk
	searchErr  error
	lastK      int
	countValue int
}

func (m *mockIndex) Add(_ context.Context, chunks []domain.Chunk, _ [][]float32) error {
	m.added = append(m.added, chunks...)
	return nil
}

func (m *mockIndex) Search(_ context.Context, _ string, _ []float32, k int) ([]domain.ScoredChunk, error) {
	m.lastK = k
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if len(m.results) > k {
		return m.results[:k], nil
	}
	return m.results, nil
}

func (m *mockIndex) Count(_ context.Context, _ string) (int, error) { return m.countValue, nil }
func (m *mockIndex) Close() error                                   { return nil }

// mockReranker implements driven.Reranker by reversing the candidate order.
type mockReranker struct {
	err    error
	called bool
	query  string
}

func (m *mockReranker) Rerank(_ context.Context, query string, candidates []domain.ScoredChunk, topK int) ([]domain.ScoredChunk, error) {
	m.called = true
	m.query = query
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.ScoredChunk, 0, len(candidates))
	for i := len(candidates) - 1; i >= 0; i-- {
		out = append(out, candidates[i])
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (m *mockReranker) Close() error { return nil }

func scoredChunks(n int) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, n)
	for i := range out {
		out[i] = domain.ScoredChunk{
			Chunk: domain.Chunk{
				ID:         fmt.Sprintf("chunk-%d", i),
				DocumentID: "doc-x",
				Content:    fmt.Sprintf("clause %d text", i),
			},
			Score: 1 - float64(i)*0.1,
		}
	}
	return out
}

func TestClassifyQuery(t *testing.T) {
	cases := []struct {
		query string
		want  queryShape
	}{
		{"Is maternity covered under this policy?", shapeYesNo},
		{"does the policy cover cataract surgery", shapeYesNo},
		{"How much is the co-payment for senior citizens?", shapeNumeric},
		{"how long is the waiting period", shapeNumeric},
		{"What percentage of the sum insured applies?", shapeNumeric},
		{"What is a pre-existing disease?", shapeDefinition},
		{"Define hospitalisation", shapeDefinition},
		{"Explain the grievance redressal process", shapeDefault},
	}

	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyQuery(tc.query))
		})
	}
}

func TestExpandQuery(t *testing.T) {
	out := expandQuery("What is the cost of the premium waiver?")
	assert.Contains(t, out, "premium charges fees")
	assert.True(t, strings.HasPrefix(out, "What is the cost of the premium waiver?"), "original query kept verbatim")

	plain := "Explain the grievance redressal process"
	assert.Equal(t, plain, expandQuery(plain), "no trigger, no expansion")
}

func TestRetriever_Ingest_Batches(t *testing.T) {
	embedder := &mockEmbedder{}
	index := &mockIndex{}
	r := NewRetriever(embedder, index, nil)

	chunks := make([]domain.Chunk, 150)
	for i := range chunks {
		chunks[i] = domain.Chunk{ID: fmt.Sprintf("c%d", i), Content: "text"}
	}

	require.NoError(t, r.Ingest(context.Background(), chunks))
	require.Len(t, embedder.batchCalls, 3) // 64 + 64 + 22
	assert.Len(t, embedder.batchCalls[0], 64)
	assert.Len(t, embedder.batchCalls[2], 22)
	assert.Len(t, index.added, 150)
}

func TestRetriever_Ingest_EmbedFailure(t *testing.T) {
	embedder := &mockEmbedder{batchErr: errors.New("ollama down")}
	r := NewRetriever(embedder, &mockIndex{}, nil)

	err := r.Ingest(context.Background(), []domain.Chunk{{ID: "c1", Content: "text"}})
	assert.ErrorContains(t, err, "embed batch")
}

func TestRetriever_Ingested(t *testing.T) {
	r := NewRetriever(&mockEmbedder{}, &mockIndex{countValue: 3}, nil)
	ok, err := r.Ingested(context.Background(), "doc-x")
	require.NoError(t, err)
	assert.True(t, ok)

	r = NewRetriever(&mockEmbedder{}, &mockIndex{}, nil)
	ok, err = r.Ingested(context.Background(), "doc-x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRetriever_Retrieve_RerankOrderWins(t *testing.T) {
	embedder := &mockEmbedder{}
	index := &mockIndex{results: scoredChunks(8)}
	reranker := &mockReranker{}
	r := NewRetriever(embedder, index, reranker)

	ctxStr, err := r.Retrieve(context.Background(), "doc-x", "Is cataract surgery covered?")
	require.NoError(t, err)

	assert.True(t, reranker.called)
	assert.Equal(t, "Is cataract surgery covered?", reranker.query, "rerank sees the raw query, not the expansion")
	assert.Equal(t, 8, index.lastK, "yes/no shape fetches 8 candidates")

	// Reranker reversed the order, so the last vector hit leads the context.
	assert.True(t, strings.HasPrefix(ctxStr, "[Section 1]\nclause 7 text"))
	assert.Equal(t, 4, strings.Count(ctxStr, "[Section "), "yes/no shape keeps 4 sections")
}

func TestRetriever_Retrieve_RerankFailureFallsBack(t *testing.T) {
	index := &mockIndex{results: scoredChunks(8)}
	r := NewRetriever(&mockEmbedder{}, index, &mockReranker{err: errors.New("jina 500")})

	ctxStr, err := r.Retrieve(context.Background(), "doc-x", "Is cataract surgery covered?")
	require.NoError(t, err, "rerank failure is not fatal")
	assert.True(t, strings.HasPrefix(ctxStr, "[Section 1]\nclause 0 text"), "vector order kept on fallback")
}

func TestRetriever_Retrieve_NoCandidates(t *testing.T) {
	r := NewRetriever(&mockEmbedder{}, &mockIndex{}, nil)

	ctxStr, err := r.Retrieve(context.Background(), "doc-x", "anything at all")
	require.NoError(t, err)
	assert.Empty(t, ctxStr)
}

func TestRetriever_Retrieve_QueryExpanded(t *testing.T) {
	embedder := &mockEmbedder{}
	index := &mockIndex{results: scoredChunks(2)}
	r := NewRetriever(embedder, index, nil)

	_, err := r.Retrieve(context.Background(), "doc-x", "What does the policy cover?")
	require.NoError(t, err)
	require.Len(t, embedder.queries, 1)
	assert.Contains(t, embedder.queries[0], "coverage benefit included", "embedding sees the expanded query")
}

func TestRetriever_NoEmbedder(t *testing.T) {
	r := NewRetriever(nil, &mockIndex{}, nil)

	_, err := r.Retrieve(context.Background(), "doc-x", "anything")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	err = r.Ingest(context.Background(), []domain.Chunk{{ID: "c1"}})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
