package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
)

// routerDoc builds a document whose first pages score the given number of
// keyword hits against each set.
func routerDoc(size int64, pages int, domainHits, generalHits int, url string) *domain.Document {
	var b strings.Builder
	for _, kw := range domainKeywords[:domainHits] {
		b.WriteString(kw)
		b.WriteString(" ")
	}
	for _, kw := range generalKeywords[:generalHits] {
		b.WriteString(kw)
		b.WriteString(" ")
	}
	doc := &domain.Document{
		ID:        "doc-test",
		URL:       url,
		SizeBytes: size,
		Pages:     make([]string, pages),
	}
	if pages > 0 {
		doc.Pages[0] = b.String()
	}
	return doc
}

func TestRouter_SizeThresholds(t *testing.T) {
	r := NewDocumentRouter(0, 0)

	big := routerDoc(15<<20, 500, 0, 0, "https://example.com/big.pdf")
	d := r.Classify(big)
	assert.Equal(t, domain.StrategyDirect, d.Strategy)
	assert.Equal(t, "over direct-size threshold", d.Reason)

	small := routerDoc(500<<10, 10, 0, 5, "https://example.com/manual.pdf")
	d = r.Classify(small)
	assert.Equal(t, domain.StrategyRetrieval, d.Strategy, "small documents are always retrieval, keywords not consulted")
	assert.Equal(t, "under sample-size threshold", d.Reason)
	assert.Zero(t, d.GeneralScore, "small documents are not sampled")
}

func TestRouter_ConfiguredThresholds(t *testing.T) {
	r := NewDocumentRouter(1<<20, 1<<10)

	doc := routerDoc(2<<20, 20, 0, 0, "https://example.com/a.pdf")
	d := r.Classify(doc)
	assert.Equal(t, domain.StrategyDirect, d.Strategy)
	assert.Equal(t, "over direct-size threshold", d.Reason)

	tiny := routerDoc(512, 5, 0, 0, "https://example.com/a.pdf")
	d = r.Classify(tiny)
	assert.Equal(t, "under sample-size threshold", d.Reason)
}

func TestRouter_ZeroThresholdsFallBackToDefaults(t *testing.T) {
	r := NewDocumentRouter(0, 0)
	assert.Equal(t, int64(DefaultDirectSizeBytes), r.directSize)
	assert.Equal(t, int64(DefaultSampleSizeBytes), r.sampleSize)
}

func TestRouter_MidSizePrecedence(t *testing.T) {
	r := NewDocumentRouter(0, 0)
	const mid = 3 << 20

	cases := []struct {
		name   string
		doc    *domain.Document
		want   domain.Strategy
		reason string
	}{
		{
			name:   "long but strongly domain-specific",
			doc:    routerDoc(mid, 250, 6, 0, "https://example.com/policy.pdf"),
			want:   domain.StrategyRetrieval,
			reason: "long but strongly domain-specific",
		},
		{
			name:   "long without domain signal",
			doc:    routerDoc(mid, 250, 4, 0, "https://example.com/a.pdf"),
			want:   domain.StrategyDirect,
			reason: "over 200 pages",
		},
		{
			name:   "general terminology dominates",
			doc:    routerDoc(mid, 50, 2, 4, "https://example.com/a.pdf"),
			want:   domain.StrategyDirect,
			reason: "general terminology dominates",
		},
		{
			name:   "weak domain signal",
			doc:    routerDoc(mid, 50, 1, 2, "https://example.com/a.pdf"),
			want:   domain.StrategyDirect,
			reason: "weak domain signal",
		},
		{
			name:   "general url with weak domain",
			doc:    routerDoc(mid, 50, 2, 0, "https://example.com/handbook.pdf"),
			want:   domain.StrategyDirect,
			reason: "general document URL",
		},
		{
			name:   "general url overridden by domain signal",
			doc:    routerDoc(mid, 50, 4, 0, "https://example.com/handbook.pdf"),
			want:   domain.StrategyRetrieval,
			reason: "default",
		},
		{
			name:   "long with general lean",
			doc:    routerDoc(mid, 150, 0, 1, "https://example.com/a.pdf"),
			want:   domain.StrategyDirect,
			reason: "long with general lean",
		},
		{
			name:   "strong domain signal",
			doc:    routerDoc(mid, 50, 6, 0, "https://example.com/a.pdf"),
			want:   domain.StrategyRetrieval,
			reason: "strong domain signal",
		},
		{
			name:   "no signal at all",
			doc:    routerDoc(mid, 50, 0, 0, "https://example.com/a.pdf"),
			want:   domain.StrategyRetrieval,
			reason: "default",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := r.Classify(tc.doc)
			assert.Equal(t, tc.want, d.Strategy)
			assert.Equal(t, tc.reason, d.Reason)
		})
	}
}

func TestRouter_Deterministic(t *testing.T) {
	r := NewDocumentRouter(0, 0)
	doc := routerDoc(3<<20, 120, 3, 2, "https://example.com/policy.pdf")

	first := r.Classify(doc)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, r.Classify(doc))
	}
}

func TestScoreKeywords_OneHitPerKeyword(t *testing.T) {
	sample := "policy policy policy premium"
	assert.Equal(t, 2, scoreKeywords(sample, domainKeywords))
}

func TestSampleText_Caps(t *testing.T) {
	pages := make([]string, 10)
	for i := range pages {
		pages[i] = strings.Repeat("X", 3000)
	}
	s := sampleText(pages)
	// 5 pages, 2000 chars each, plus newlines, lowercased.
	assert.Len(t, s, 5*2000+5)
	assert.Equal(t, strings.ToLower(s), s)
}

func TestSampleText_CutsOnRuneBoundary(t *testing.T) {
	// A page of three-byte runes whose length is not a multiple of the
	// per-page cap. A byte-wise cut would leave a torn rune at the end.
	page := strings.Repeat("猫", 1000)
	s := sampleText([]string{page})
	assert.True(t, utf8.ValidString(s))
	assert.LessOrEqual(t, len(s), samplePageChars+1)
}

func TestCutAtRuneBoundary(t *testing.T) {
	assert.Equal(t, "", cutAtRuneBoundary("héllo", 0))
	assert.Equal(t, "h", cutAtRuneBoundary("héllo", 1))
	assert.Equal(t, "h", cutAtRuneBoundary("héllo", 2), "mid-rune cut backs off")
	assert.Equal(t, "hé", cutAtRuneBoundary("héllo", 3))
	assert.Equal(t, "héllo", cutAtRuneBoundary("héllo", 99))
}
