package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/ports/driven"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/logger"
)

// DefaultConcurrency bounds in-flight LLM calls per batch, independent of
// how many credentials are healthy. Bursts of questions must not overwhelm
// downstream services just because the pool is large.
const DefaultConcurrency = 8

// rateLimitBackoff is the brief pause before retrying a rate-limited call.
// The admission window prevents recurrence; this just lets the provider
// settle.
const rateLimitBackoff = 2 * time.Second

// systemPrompt instructs the model to answer only from the given context.
const systemPrompt = "You are an expert Q&A system for legal and insurance documents. " +
	"Your task is to provide a clear and concise answer to the user's question based *exclusively* " +
	"on the provided context. Do not use any external knowledge. " +
	"If the answer cannot be found in the context, you must state: " +
	"'Based on the provided document, an answer to this question could not be found.'"

// Degraded answers returned in place of per-question failures. Failures are
// converted to these placeholders rather than failing the whole batch.
const (
	answerNotFound    = "Based on the provided document, an answer to this question could not be found."
	answerError       = "An error occurred while generating the answer."
	answerUnavailable = "The service is temporarily unavailable for this question. Please try again later."
)

// Direct-strategy excerpt budgets.
const (
	excerptMaxChars   = 10000
	shortDocPageLimit = 20
	tocScanPages      = 30
)

// PageChunker splits a document's pages into chunks. Satisfied by
// chunker.Chunker; an interface here keeps the orchestrator testable.
type PageChunker interface {
	Chunk(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}

// QueryOrchestrator coordinates the whole answer pipeline: fetch and prepare
// the document once, then answer each question concurrently through the
// cache, the retriever, the admission controller and the LLM.
type QueryOrchestrator struct {
	fetcher   driven.DocumentFetcher
	router    *DocumentRouter
	chunker   PageChunker
	retriever *Retriever
	pool      *CredentialPool
	admission *AdmissionController
	llm       driven.CompletionService
	answers   driven.AnswerStore

	concurrency int
	inflight    *inflightGuard

	// sleep is swappable for tests; defaults to a context-aware wait.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewQueryOrchestrator wires the pipeline. concurrency <= 0 selects
// DefaultConcurrency.
func NewQueryOrchestrator(
	fetcher driven.DocumentFetcher,
	router *DocumentRouter,
	pageChunker PageChunker,
	retriever *Retriever,
	pool *CredentialPool,
	admission *AdmissionController,
	llm driven.CompletionService,
	answers driven.AnswerStore,
	concurrency int,
) *QueryOrchestrator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &QueryOrchestrator{
		fetcher:     fetcher,
		router:      router,
		chunker:     pageChunker,
		retriever:   retriever,
		pool:        pool,
		admission:   admission,
		llm:         llm,
		answers:     answers,
		concurrency: concurrency,
		inflight:    newInflightGuard(),
		sleep:       sleepCtx,
	}
}

// DocumentID derives the stable document identity from its URL.
func DocumentID(url string) string {
	sum := md5.Sum([]byte(url))
	return "doc-" + hex.EncodeToString(sum[:])
}

// Answer processes one request: download the document, pick a strategy,
// prepare retrieval or a direct excerpt, then answer every question under
// the global concurrency bound. The result preserves question order exactly;
// per-question failures become placeholder answers. Only document
// acquisition and preparation failures abort the call.
func (o *QueryOrchestrator) Answer(ctx context.Context, documentURL string, questions []string) ([]string, error) {
	logger.Section("Query Pipeline")

	doc, err := o.fetcher.Fetch(ctx, documentURL)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	doc.ID = DocumentID(documentURL)

	decision := o.router.Classify(doc)

	var excerpt string
	switch decision.Strategy {
	case domain.StrategyRetrieval:
		if err := o.prepareRetrieval(ctx, doc); err != nil {
			return nil, fmt.Errorf("prepare retrieval: %w", err)
		}
	case domain.StrategyDirect:
		excerpt = buildExcerpt(doc)
	}

	answers := make([]string, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, q := range questions {
		g.Go(func() error {
			answers[i] = o.answerOne(gctx, doc.ID, q, decision.Strategy, excerpt)
			return nil
		})
	}
	// Workers never return errors; failures are already placeholders.
	_ = g.Wait()

	return answers, nil
}

// prepareRetrieval chunks and ingests the document unless it is already in
// the index. The existence check keeps re-ingestion idempotent.
func (o *QueryOrchestrator) prepareRetrieval(ctx context.Context, doc *domain.Document) error {
	ingested, err := o.retriever.Ingested(ctx, doc.ID)
	if err != nil {
		return err
	}
	if ingested {
		logger.Info("document %s already ingested", doc.ID)
		return nil
	}

	chunks, err := o.chunker.Chunk(ctx, doc)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return domain.ErrDocumentEmpty
	}
	return o.retriever.Ingest(ctx, chunks)
}

// answerOne resolves a single question: cache first, then the expensive
// path guarded so concurrent misses on the same question compute once.
func (o *QueryOrchestrator) answerOne(ctx context.Context, docID, question string, strategy domain.Strategy, excerpt string) string {
	if answer, err := o.answers.Get(ctx, docID, question); err == nil {
		logger.Debug("cache hit: %q", question)
		return answer
	}

	key := docID + "\x00" + strings.ToLower(strings.TrimSpace(question))
	release, leader := o.inflight.acquire(key)
	defer release()
	if !leader {
		// A concurrent caller computed this question while we waited.
		if answer, err := o.answers.Get(ctx, docID, question); err == nil {
			return answer
		}
	}

	contextText := excerpt
	if strategy == domain.StrategyRetrieval {
		retrieved, err := o.retriever.Retrieve(ctx, docID, question)
		if err != nil {
			logger.Error("retrieve failed for %q: %v", question, err)
			return answerError
		}
		contextText = retrieved
	}
	if strings.TrimSpace(contextText) == "" {
		// Nothing to answer from; skip the LLM call entirely.
		return answerNotFound
	}

	answer, err := o.complete(ctx, question, contextText)
	if err != nil {
		if errors.Is(err, domain.ErrNoCredentials) {
			logger.Error("no credentials available for %q", question)
			return answerUnavailable
		}
		logger.Error("LLM call failed for %q: %v", question, err)
		return answerError
	}

	if err := o.answers.Put(ctx, docID, question, answer); err != nil {
		logger.Warn("cache put failed: %v", err)
	}
	return answer
}

// complete issues the LLM call with an explicit bounded retry: at most one
// retry, forced onto a different credential. Rate-limit errors back off
// briefly first; the admission window prevents them from recurring.
func (o *QueryOrchestrator) complete(ctx context.Context, question, contextText string) (string, error) {
	userPrompt := fmt.Sprintf("CONTEXT:\n---\n%s\n---\n\nQUESTION:\n%s", contextText, question)

	failedIndex := -1
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		cred, waited, err := o.admission.NextAvailable(ctx)
		if err != nil {
			return "", err
		}
		if cred.Index == failedIndex && o.pool.Size() > 1 {
			// The retry should land on a different key than the one that
			// just failed. Hand the unused slot back before asking again so
			// the skipped key keeps its full minute budget.
			o.admission.Release(cred.Index)
			cred, _, err = o.admission.NextAvailable(ctx)
			if err != nil {
				return "", err
			}
		}
		if waited > 0 {
			logger.Debug("waited %.1fs for key #%d", waited.Seconds(), cred.Index+1)
		}

		answer, err := o.llm.Complete(ctx, driven.CompletionRequest{
			APIKey:       cred.Secret,
			SystemPrompt: systemPrompt,
			UserPrompt:   userPrompt,
			MaxTokens:    1024,
			Temperature:  0,
		})
		if err == nil {
			o.pool.RecordSuccess(cred.Index)
			return strings.TrimSpace(answer), nil
		}

		o.pool.RecordFailure(cred.Index, err.Error())
		failedIndex = cred.Index
		lastErr = err

		if errors.Is(err, domain.ErrRateLimited) {
			if serr := o.sleep(ctx, rateLimitBackoff); serr != nil {
				return "", serr
			}
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

// buildExcerpt produces the shared direct-strategy context: the opening
// pages for short documents, the first page plus any detected table of
// contents for long ones. Bounded by excerptMaxChars either way.
func buildExcerpt(doc *domain.Document) string {
	var b strings.Builder

	appendPage := func(i int) bool {
		page := strings.TrimSpace(doc.Pages[i])
		if page == "" {
			return true
		}
		if b.Len()+len(page) > excerptMaxChars {
			// The cut must not split a multi-byte rune; invalid UTF-8 in
			// the prompt confuses tokenisation downstream.
			b.WriteString(cutAtRuneBoundary(page, excerptMaxChars-b.Len()))
			return false
		}
		b.WriteString(page)
		b.WriteString("\n\n")
		return true
	}

	if doc.PageCount() <= shortDocPageLimit {
		for i := range doc.Pages {
			if !appendPage(i) {
				break
			}
		}
		return strings.TrimSpace(b.String())
	}

	// Long document: first page, then any page that looks like a table of
	// contents within the opening section.
	appendPage(0)
	for i := 1; i < doc.PageCount() && i < tocScanPages; i++ {
		if looksLikeTOC(doc.Pages[i]) {
			if !appendPage(i) {
				break
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// looksLikeTOC checks the head of a page for table-of-contents markers.
func looksLikeTOC(page string) bool {
	head := strings.ToLower(page)
	if len(head) > 300 {
		head = head[:300]
	}
	return strings.Contains(head, "table of contents") || strings.Contains(head, "contents")
}

// inflightGuard serialises the expensive path per cache key so only the
// first concurrent miss computes; followers wait and re-read the cache.
type inflightGuard struct {
	mu   sync.Mutex
	keys map[string]chan struct{}
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{keys: make(map[string]chan struct{})}
}

// acquire returns a release func and whether the caller is the leader for
// the key. Non-leaders block until the leader releases.
func (g *inflightGuard) acquire(key string) (func(), bool) {
	g.mu.Lock()
	if ch, exists := g.keys[key]; exists {
		g.mu.Unlock()
		<-ch
		return func() {}, false
	}

	ch := make(chan struct{})
	g.keys[key] = ch
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.keys, key)
		g.mu.Unlock()
		close(ch)
	}, true
}
