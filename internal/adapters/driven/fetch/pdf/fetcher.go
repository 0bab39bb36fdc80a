// Package pdf downloads a PDF over HTTP and extracts per-page plain text.
// It realises the pipeline's document-acquisition collaborator; everything
// downstream works on extracted page text only.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/ports/driven"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.DocumentFetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 50 << 20 // refuse downloads beyond 50 MB
)

// Config holds configuration for the PDF fetcher.
type Config struct {
	// Timeout is the download timeout (default: 30s).
	Timeout time.Duration

	// MaxBytes caps the download size (default: 50 MB).
	MaxBytes int64
}

// Fetcher downloads PDFs and extracts their text page by page.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a PDF fetcher.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		maxBytes: cfg.MaxBytes,
	}
}

// Fetch downloads the document and extracts page text. A failed download or
// a document with no extractable text is terminal for the whole request.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*domain.Document, error) {
	logger.Info("downloading document from %s", url)

	raw, err := f.download(ctx, url)
	if err != nil {
		return nil, err
	}
	logger.Debug("downloaded %d bytes", len(raw))

	pages, err := extractPages(raw)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	empty := true
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			empty = false
			break
		}
	}
	if empty {
		return nil, domain.ErrDocumentEmpty
	}

	logger.Info("extracted %d pages", len(pages))
	return &domain.Document{
		URL:       url,
		SizeBytes: int64(len(raw)),
		Pages:     pages,
	}, nil
}

// download streams the document into memory, refusing oversized responses.
func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download document: status %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, f.maxBytes+1)); err != nil {
		return nil, fmt.Errorf("read document body: %w", err)
	}
	if int64(buf.Len()) > f.maxBytes {
		return nil, fmt.Errorf("document exceeds %d byte limit: %w", f.maxBytes, domain.ErrInvalidInput)
	}
	return buf.Bytes(), nil
}

// extractPages validates the PDF and returns per-page plain text.
// pdfcpu validates structure and supplies the authoritative page count;
// text decoding itself goes through the pdf reader.
func extractPages(raw []byte) ([]string, error) {
	pageCount, err := api.PageCount(bytes.NewReader(raw), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	if n := r.NumPage(); n < pageCount {
		pageCount = n
	}

	pages := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// A single undecodable page should not sink the document.
			logger.Warn("page %d: text extraction failed: %v", i, err)
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
