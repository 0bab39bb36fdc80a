package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/ports/driven"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/logger"
)

// embedBatchSize bounds one embedding request during ingestion.
const embedBatchSize = 64

// queryShape tunes candidate and final counts to the kind of question asked.
type queryShape struct {
	name       string
	candidates int
	final      int
}

var (
	shapeYesNo      = queryShape{"yes/no", 8, 4}
	shapeNumeric    = queryShape{"numeric", 12, 6}
	shapeDefinition = queryShape{"definitional", 10, 5}
	shapeDefault    = queryShape{"default", 10, 5}
)

// synonymExpansions widens cost/time/coverage questions with the policy
// vocabulary documents actually use.
var synonymExpansions = map[string]string{
	"cost":     "premium charges fees",
	"price":    "premium charges fees",
	"time":     "period duration days months",
	"how long": "period duration days months",
	"cover":    "coverage benefit included",
	"covered":  "coverage benefit included",
	"limit":    "maximum cap sub-limit",
}

// Retriever turns a query into a bounded, relevant context string. It embeds
// and stores chunks once per document, then answers queries with a vector
// search followed by a cross-encoder rerank.
type Retriever struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	reranker driven.Reranker
}

// NewRetriever creates a retriever. The reranker is optional; when nil,
// candidates keep their vector-similarity order.
func NewRetriever(embedder driven.EmbeddingService, index driven.VectorIndex, reranker driven.Reranker) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		reranker: reranker,
	}
}

// Ingested reports whether a document already has chunks in the index.
// Callers check this before Ingest; ingestion itself is not re-entrant.
func (r *Retriever) Ingested(ctx context.Context, documentID string) (bool, error) {
	n, err := r.index.Count(ctx, documentID)
	if err != nil {
		return false, fmt.Errorf("count chunks: %w", err)
	}
	return n > 0, nil
}

// Ingest embeds all chunks in batches and stores them. Safe to call once per
// document identity; deterministic chunk IDs make accidental repeats no-ops
// at the index level.
func (r *Retriever) Ingest(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if r.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}

	logger.Section("Document Ingestion")
	logger.Info("embedding %d chunks (batch size %d)", len(chunks), embedBatchSize)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vectors, err := r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch %d: %w", start/embedBatchSize, err)
		}
		if err := r.index.Add(ctx, batch, vectors); err != nil {
			return fmt.Errorf("store batch %d: %w", start/embedBatchSize, err)
		}
	}
	return nil
}

// Retrieve builds the context string for one query: classify the query
// shape, optionally expand it with synonyms, fetch the nearest candidates,
// rerank them against the raw query, and concatenate the winners in ranked
// order. No candidates means an empty string; the caller decides what an
// answer without context looks like.
func (r *Retriever) Retrieve(ctx context.Context, documentID, query string) (string, error) {
	if r.embedder == nil {
		return "", domain.ErrEmbeddingUnavailable
	}

	shape := classifyQuery(query)
	expanded := expandQuery(query)
	logger.Debug("retrieve: shape=%s candidates=%d final=%d expanded=%t",
		shape.name, shape.candidates, shape.final, expanded != query)

	vec, err := r.embedder.Embed(ctx, expanded)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	candidates, err := r.index.Search(ctx, documentID, vec, shape.candidates)
	if err != nil {
		return "", fmt.Errorf("vector search: %w", err)
	}
	if len(candidates) == 0 {
		return "", nil
	}

	final := candidates
	if r.reranker != nil {
		// Rerank against the raw query, not the expansion: the cross-encoder
		// is sensitive to phrasing and the synonyms were only for recall.
		final, err = r.reranker.Rerank(ctx, query, candidates, shape.final)
		if err != nil {
			logger.Warn("rerank failed, keeping vector order: %v", err)
			final = candidates
		}
	}
	if len(final) > shape.final {
		final = final[:shape.final]
	}

	var b strings.Builder
	for i, sc := range final {
		fmt.Fprintf(&b, "[Section %d]\n%s\n\n", i+1, sc.Chunk.Content)
	}
	return strings.TrimSpace(b.String()), nil
}

// classifyQuery picks candidate/final counts from the question's shape.
func classifyQuery(query string) queryShape {
	q := strings.ToLower(strings.TrimSpace(query))

	for _, prefix := range []string{"is ", "are ", "does ", "do ", "can ", "will ", "has ", "have ", "am "} {
		if strings.HasPrefix(q, prefix) {
			return shapeYesNo
		}
	}
	for _, marker := range []string{"how much", "how many", "what is the cost", "number of", "how long", "what percentage"} {
		if strings.Contains(q, marker) {
			return shapeNumeric
		}
	}
	for _, marker := range []string{"what is ", "what are ", "define ", "meaning of ", "definition of "} {
		if strings.HasPrefix(q, marker) || strings.Contains(q, "definition of") {
			return shapeDefinition
		}
	}
	return shapeDefault
}

// expandQuery appends synonym terms for cost/time/coverage style questions.
func expandQuery(query string) string {
	q := strings.ToLower(query)
	var extras []string
	for trigger, terms := range synonymExpansions {
		if strings.Contains(q, trigger) && !strings.Contains(q, terms) {
			extras = append(extras, terms)
		}
	}
	if len(extras) == 0 {
		return query
	}
	// Map iteration order varies, but expansion only affects recall, not
	// the rerank ordering that decides the final context.
	return query + " " + strings.Join(extras, " ")
}
