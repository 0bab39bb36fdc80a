package chunker

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
)

func testDoc(pages ...string) *domain.Document {
	return &domain.Document{
		ID:    "doc-chunktest",
		URL:   "https://example.com/doc.pdf",
		Pages: pages,
	}
}

func TestChunk_EmptyDocument(t *testing.T) {
	c := New()
	chunks, err := c.Chunk(context.Background(), testDoc())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunk_SkipsEmptyPages(t *testing.T) {
	c := New()
	chunks, err := c.Chunk(context.Background(), testDoc("first page text", "", "   ", "last page text"))
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 4, chunks[1].Page)
}

func TestChunk_StripsRepeatedHeaders(t *testing.T) {
	const header = "ACME Insurance Policy Wording v2"
	const footer = "Confidential - internal use only"

	pages := make([]string, 4)
	for i := range pages {
		pages[i] = fmt.Sprintf("%s\nClause %d applies to the insured.\n%s", header, i+1, footer)
	}

	c := New()
	chunks, err := c.Chunk(context.Background(), testDoc(pages...))
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	for _, ch := range chunks {
		assert.NotContains(t, ch.Content, header)
		assert.NotContains(t, ch.Content, footer)
		assert.Contains(t, ch.Content, "applies to the insured")
	}
}

func TestChunk_HeaderOnMostPagesIsKept(t *testing.T) {
	const header = "ACME Insurance Policy Wording v2"

	// Header on 3 of 4 pages: not every page, so it survives.
	pages := []string{
		header + "\npage one body",
		header + "\npage two body",
		header + "\npage three body",
		"page four body",
	}

	c := New()
	chunks, err := c.Chunk(context.Background(), testDoc(pages...))
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	assert.Contains(t, chunks[0].Content, header)
}

func TestChunk_ShortRepeatedLinesSurvive(t *testing.T) {
	// "Page 1 of 4" style lines are short; stripping keys on length, and
	// identical short lines (like a bare page number header) must stay.
	pages := []string{
		"Section A\nbody text one",
		"Section A\nbody text two",
	}

	c := New()
	chunks, err := c.Chunk(context.Background(), testDoc(pages...))
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].Content, "Section A")
}

func TestChunk_Deterministic(t *testing.T) {
	doc := testDoc(strings.Repeat("The insured shall notify the insurer of any claim. ", 80))

	c := New()
	first, err := c.Chunk(context.Background(), doc)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := c.Chunk(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same document yields identical chunks and IDs")
}

func TestChunk_RespectsWindowAndOverlap(t *testing.T) {
	// 100-token window and 20-token overlap: chunks hold up to 400 chars of
	// new content plus the 80-char carried overlap.
	c := New(WithChunkTokens(100), WithOverlapTokens(20), WithWorkers(1))

	text := strings.Repeat("Every policyholder must submit a written claim within thirty days. ", 40)
	chunks, err := c.Chunk(context.Background(), testDoc(text))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Content), (100+20)*4, "chunk %d exceeds window plus overlap", i)
		assert.Equal(t, i, ch.Sequence)
		assert.Equal(t, 1, ch.Page)
		assert.Equal(t, "doc-chunktest", ch.DocumentID)
	}

	// Consecutive chunks share trailing context.
	tail := chunks[0].Content[len(chunks[0].Content)-30:]
	assert.Contains(t, chunks[1].Content, strings.TrimSpace(tail)[:10])
}

func TestChunk_UnbrokenTextFallsBackToCharacters(t *testing.T) {
	c := New(WithChunkTokens(50), WithOverlapTokens(0), WithWorkers(1))

	text := strings.Repeat("x", 1000) // no separators at all
	chunks, err := c.Chunk(context.Background(), testDoc(text))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Content), 50*4)
	}
}

func TestChunk_UniqueIDs(t *testing.T) {
	pages := []string{
		strings.Repeat("alpha beta gamma delta. ", 60),
		strings.Repeat("alpha beta gamma delta. ", 60), // identical content, different page
	}

	c := New(WithChunkTokens(50), WithOverlapTokens(10), WithWorkers(1))
	chunks, err := c.Chunk(context.Background(), testDoc(pages...))
	require.NoError(t, err)

	seen := make(map[string]struct{}, len(chunks))
	for _, ch := range chunks {
		_, dup := seen[ch.ID]
		assert.False(t, dup, "duplicate chunk ID %s", ch.ID)
		seen[ch.ID] = struct{}{}
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("a", 100)))
}

func TestNew_OverlapClampedBelowWindow(t *testing.T) {
	c := New(WithChunkTokens(100), WithOverlapTokens(200))
	assert.Equal(t, 25, c.overlapTokens)
}
