package driven

import (
	"context"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
)

// DocumentFetcher downloads a document and extracts per-page plain text.
// Download and extraction failures are terminal for the whole request:
// without a document there is nothing to answer from.
type DocumentFetcher interface {
	// Fetch downloads the document at url and returns it with extracted
	// page text. Returns domain.ErrDocumentEmpty when no text survives
	// extraction.
	Fetch(ctx context.Context, url string) (*domain.Document, error)
}
