package domain

// Document is a downloaded source document after text extraction.
type Document struct {
	// ID is the stable identity of the document, derived from its URL.
	ID string

	// URL is the original download location.
	URL string

	// SizeBytes is the raw (pre-extraction) document size.
	SizeBytes int64

	// Pages is the per-page extracted text. Page numbers are 1-based
	// (Pages[0] is page 1).
	Pages []string
}

// PageCount returns the number of pages in the document.
func (d Document) PageCount() int {
	return len(d.Pages)
}

// Chunk is a retrievable unit of document text.
// Chunks are immutable once produced by the chunker.
type Chunk struct {
	// ID is deterministic for a given (document, page, sequence, content),
	// so re-ingesting the same document produces the same IDs.
	ID string

	// DocumentID links to the source document.
	DocumentID string

	// Content is the chunk text. Never empty after header/footer stripping.
	Content string

	// Page is the 1-based page the chunk came from.
	Page int

	// Sequence is the chunk's position within its page.
	Sequence int
}

// ScoredChunk is a chunk with a relevance score attached during retrieval.
// Transient: produced per query, never persisted.
type ScoredChunk struct {
	Chunk Chunk

	// Score is the relevance of the chunk to the query. Higher is better.
	Score float64
}

// Strategy selects the processing path for a document.
type Strategy string

const (
	// StrategyRetrieval runs the full chunk/embed/rerank pipeline.
	StrategyRetrieval Strategy = "retrieval"

	// StrategyDirect answers from a bounded excerpt of the document.
	StrategyDirect Strategy = "direct"
)

// StrategyDecision is the router's classification of a document, together
// with the signals that produced it. Computed once per document.
type StrategyDecision struct {
	Strategy Strategy

	// SizeBytes is the raw document size used for the size thresholds.
	SizeBytes int64

	// PageCount is the number of extracted pages.
	PageCount int

	// DomainScore counts insurance/policy keyword hits in the sampled text.
	DomainScore int

	// GeneralScore counts general/legal/academic keyword hits.
	GeneralScore int

	// Reason is a short human-readable explanation for logs.
	Reason string
}
