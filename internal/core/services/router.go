package services

import (
	"strings"
	"unicode/utf8"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/logger"
)

// Size threshold defaults for routing, overridable via configuration.
const (
	// DefaultDirectSizeBytes: documents larger than this always take the
	// direct path; full chunk/embed ingestion is too costly at request time.
	DefaultDirectSizeBytes = 10 << 20

	// DefaultSampleSizeBytes: documents above this are sampled and scored
	// against the keyword sets before deciding.
	DefaultSampleSizeBytes = 2 << 20

	// samplePages and samplePageChars bound the classification sample.
	samplePages     = 5
	samplePageChars = 2000
)

// domainKeywords is the insurance/policy terminology set. Hits indicate the
// document benefits from full semantic retrieval.
var domainKeywords = []string{
	"policy", "premium", "insured", "insurer", "coverage", "claim",
	"exclusion", "deductible", "waiting period", "sum insured",
	"policyholder", "grievance", "co-payment", "maternity",
	"pre-existing", "hospitalisation", "hospitalization", "renewal",
}

// generalKeywords is the general/legal/academic terminology set. Hits
// indicate a document better served by a direct excerpt.
var generalKeywords = []string{
	"constitution", "article", "amendment", "parliament", "chapter",
	"court", "tribunal", "statute", "university", "thesis", "abstract",
	"curriculum", "manual", "handbook", "tutorial", "appendix",
}

// urlKeywords flag known general documents by their source URL.
var urlKeywords = []string{"constitution", "manual", "handbook", "tutorial"}

// DocumentRouter classifies a document into a processing strategy.
// It is a small deterministic heuristic with a fixed precedence order,
// not a learned classifier.
type DocumentRouter struct {
	directSize int64
	sampleSize int64
}

// NewDocumentRouter creates a router with the given size thresholds in
// bytes. Non-positive values select the defaults.
func NewDocumentRouter(directSizeBytes, sampleSizeBytes int64) *DocumentRouter {
	if directSizeBytes <= 0 {
		directSizeBytes = DefaultDirectSizeBytes
	}
	if sampleSizeBytes <= 0 {
		sampleSizeBytes = DefaultSampleSizeBytes
	}
	return &DocumentRouter{
		directSize: directSizeBytes,
		sampleSize: sampleSizeBytes,
	}
}

// Classify picks the processing strategy for a document. The decision is a
// total-order precedence table over size, page count, keyword scores and the
// source URL; given the same inputs it always returns the same decision.
func (r *DocumentRouter) Classify(doc *domain.Document) domain.StrategyDecision {
	d := domain.StrategyDecision{
		SizeBytes: doc.SizeBytes,
		PageCount: doc.PageCount(),
	}

	switch {
	case doc.SizeBytes > r.directSize:
		d.Strategy = domain.StrategyDirect
		d.Reason = "over direct-size threshold"

	case doc.SizeBytes > r.sampleSize:
		sample := sampleText(doc.Pages)
		d.DomainScore = scoreKeywords(sample, domainKeywords)
		d.GeneralScore = scoreKeywords(sample, generalKeywords)
		d.Strategy, d.Reason = r.decide(d, doc.URL)

	default:
		d.Strategy = domain.StrategyRetrieval
		d.Reason = "under sample-size threshold"
	}

	logger.Info("router: %s (%s) size=%dB pages=%d domain=%d general=%d",
		d.Strategy, d.Reason, d.SizeBytes, d.PageCount, d.DomainScore, d.GeneralScore)
	return d
}

// decide applies the mid-size precedence table. Checked in order; the first
// match wins. The order is part of the contract and must not be rearranged.
func (r *DocumentRouter) decide(d domain.StrategyDecision, url string) (domain.Strategy, string) {
	pages := d.PageCount
	ds, gs := d.DomainScore, d.GeneralScore

	switch {
	case pages > 200 && ds >= 5:
		// Strong domain signal overrides page count.
		return domain.StrategyRetrieval, "long but strongly domain-specific"
	case pages > 200:
		return domain.StrategyDirect, "over 200 pages"
	case gs >= 3 && gs > ds:
		return domain.StrategyDirect, "general terminology dominates"
	case ds <= 1 && gs >= 2:
		return domain.StrategyDirect, "weak domain signal"
	case urlSuggestsGeneral(url) && ds < 3:
		return domain.StrategyDirect, "general document URL"
	case pages > 100 && gs > ds && ds < 3:
		return domain.StrategyDirect, "long with general lean"
	case ds >= 5:
		return domain.StrategyRetrieval, "strong domain signal"
	default:
		return domain.StrategyRetrieval, "default"
	}
}

// sampleText joins up to the first samplePages pages, capped per page.
func sampleText(pages []string) string {
	var b strings.Builder
	for i, p := range pages {
		if i >= samplePages {
			break
		}
		b.WriteString(strings.ToLower(cutAtRuneBoundary(p, samplePageChars)))
		b.WriteByte('\n')
	}
	return b.String()
}

// cutAtRuneBoundary truncates s to at most limit bytes without splitting a
// multi-byte rune: the cut backs up to the nearest rune start.
func cutAtRuneBoundary(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// scoreKeywords counts which keywords appear in the sample. Each keyword
// contributes at most one hit, so a single repeated term cannot dominate.
func scoreKeywords(sample string, keywords []string) int {
	score := 0
	for _, kw := range keywords {
		if strings.Contains(sample, kw) {
			score++
		}
	}
	return score
}

func urlSuggestsGeneral(url string) bool {
	u := strings.ToLower(url)
	for _, kw := range urlKeywords {
		if strings.Contains(u, kw) {
			return true
		}
	}
	return false
}
