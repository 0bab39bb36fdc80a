// Package chunker splits extracted document pages into bounded, overlapping
// text chunks suitable for embedding. Repeated headers and footers are
// stripped before splitting so they never pollute retrieval.
package chunker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/logger"
)

// Default chunk budget, in token equivalents.
const (
	DefaultChunkTokens   = 350
	DefaultOverlapTokens = 75

	// minHeaderLen: a line must be longer than this to count as a repeated
	// header/footer. Short lines like page numbers repeat legitimately.
	minHeaderLen = 10
)

// separators is the split priority: paragraph break, line break, sentence
// end, space, then raw characters as a last resort.
var separators = []string{"\n\n", "\n", ". ", " "}

// EstimateTokens approximates the token count of text. One shared length
// function keeps chunk budgets consistent across the worker pool; the 4
// chars/token ratio tracks English subword tokenisers closely enough for
// budgeting.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Chunker splits per-page document text into domain.Chunk values.
type Chunker struct {
	chunkTokens   int
	overlapTokens int
	workers       int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkTokens sets the target chunk size in token equivalents.
func WithChunkTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.chunkTokens = n
		}
	}
}

// WithOverlapTokens sets the overlap between consecutive chunks.
func WithOverlapTokens(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlapTokens = n
		}
	}
}

// WithWorkers bounds the page-splitting worker pool.
func WithWorkers(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.workers = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkTokens:   DefaultChunkTokens,
		overlapTokens: DefaultOverlapTokens,
		workers:       runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlapTokens >= c.chunkTokens {
		c.overlapTokens = c.chunkTokens / 4
	}
	return c
}

// Chunk splits a document's pages into chunks. Pages are processed
// independently on a bounded worker pool; output order follows page order
// but downstream storage is content-addressed, so ordering carries no
// meaning. Chunk IDs are deterministic for idempotent re-ingestion.
//
// Larger documents get larger windows so the total chunk count stays
// bounded.
func (c *Chunker) Chunk(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc.PageCount() == 0 {
		return nil, nil
	}

	cleaned := stripRepeatedLines(doc.Pages)

	window, overlap := c.chunkTokens, c.overlapTokens
	switch {
	case doc.PageCount() > 400:
		window, overlap = 650, 100
	case doc.PageCount() > 150:
		window, overlap = 500, 90
	}

	perPage := make([][]domain.Chunk, len(cleaned))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i := range cleaned {
		g.Go(func() error {
			page := i + 1
			text := strings.TrimSpace(cleaned[i])
			if text == "" {
				// Page held nothing but headers/footers.
				return nil
			}
			pieces := split(text, window*4, overlap*4)
			chunks := make([]domain.Chunk, 0, len(pieces))
			for seq, piece := range pieces {
				chunks = append(chunks, domain.Chunk{
					ID:         chunkID(doc.ID, page, seq, piece),
					DocumentID: doc.ID,
					Content:    piece,
					Page:       page,
					Sequence:   seq,
				})
			}
			perPage[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []domain.Chunk
	for _, chunks := range perPage {
		out = append(out, chunks...)
	}
	logger.Info("chunker: %d pages -> %d chunks (window %d tokens)", doc.PageCount(), len(out), window)
	return out, nil
}

// stripRepeatedLines removes lines that appear on literally every page and
// are longer than minHeaderLen characters. These are headers or footers; a
// line missing from even one page is kept everywhere.
func stripRepeatedLines(pages []string) []string {
	if len(pages) < 2 {
		return pages
	}

	pageCounts := make(map[string]int)
	for _, page := range pages {
		seen := make(map[string]struct{})
		for _, line := range strings.Split(page, "\n") {
			t := strings.TrimSpace(line)
			if t == "" {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			pageCounts[t]++
		}
	}

	repeated := make(map[string]struct{})
	for line, n := range pageCounts {
		if n == len(pages) && len(line) > minHeaderLen {
			repeated[line] = struct{}{}
		}
	}
	if len(repeated) == 0 {
		return pages
	}

	out := make([]string, len(pages))
	for i, page := range pages {
		var kept []string
		for _, line := range strings.Split(page, "\n") {
			if _, drop := repeated[strings.TrimSpace(line)]; drop {
				continue
			}
			kept = append(kept, line)
		}
		out[i] = strings.Join(kept, "\n")
	}
	return out
}

// split recursively divides text using the separator hierarchy, then packs
// the fragments into windows with overlapChars of trailing context carried
// into the next chunk. Packed chunks hold at most chunkChars of new content
// plus the carried overlap.
func split(text string, chunkChars, overlapChars int) []string {
	if len(text) <= chunkChars {
		return []string{text}
	}

	frags := fragment(text, chunkChars, 0)
	return pack(frags, chunkChars, overlapChars)
}

// fragment breaks text into pieces no longer than limit, preferring the
// highest-priority separator that produces progress.
func fragment(text string, limit, sepIdx int) []string {
	if len(text) <= limit {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}
	if sepIdx >= len(separators) {
		// Character-level fallback for pathological unbroken runs.
		var out []string
		for len(text) > limit {
			out = append(out, text[:limit])
			text = text[limit:]
		}
		if strings.TrimSpace(text) != "" {
			out = append(out, text)
		}
		return out
	}

	sep := separators[sepIdx]
	parts := strings.Split(text, sep)
	if len(parts) == 1 {
		return fragment(text, limit, sepIdx+1)
	}

	var out []string
	for i, part := range parts {
		if i < len(parts)-1 {
			part += sep
		}
		out = append(out, fragment(part, limit, sepIdx+1)...)
	}
	return out
}

// pack greedily joins fragments into windows, seeding each window with the
// tail of the previous one for overlap. A seeded window accepts one window's
// worth of new content on top of the seed, so an emitted chunk is bounded by
// chunkChars+overlapChars, never by chunkChars alone.
func pack(frags []string, chunkChars, overlapChars int) []string {
	var out []string
	var cur strings.Builder

	flush := func() {
		piece := strings.TrimSpace(cur.String())
		if piece != "" {
			out = append(out, piece)
		}
		carry := cur.String()
		cur.Reset()
		if overlapChars > 0 && len(carry) > overlapChars {
			cur.WriteString(carry[len(carry)-overlapChars:])
		}
	}

	for _, f := range frags {
		if cur.Len() > 0 && cur.Len()+len(f) > chunkChars {
			flush()
		}
		cur.WriteString(f)
	}
	if strings.TrimSpace(cur.String()) != "" {
		piece := strings.TrimSpace(cur.String())
		if len(out) == 0 || out[len(out)-1] != piece {
			out = append(out, piece)
		}
	}
	return out
}

// chunkID derives a stable identifier from the chunk's coordinates and
// content. Identical input always yields identical IDs.
func chunkID(docID string, page, seq int, content string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d:%s", docID, page, seq, content)))
	return hex.EncodeToString(h[:16])
}
