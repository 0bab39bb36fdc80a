package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/adapters/driven/embedding/ollama"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/adapters/driven/fetch/pdf"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/adapters/driven/llm/groq"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/adapters/driven/rerank/jina"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/adapters/driven/storage/memory"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/adapters/driven/storage/sqlite"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/adapters/driving/httpapi"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/chunker"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/config"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/ports/driven"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/services"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Q&A HTTP service",
	Long: `Loads the configuration, health-checks the API key pool and serves
the run/status endpoints until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Verbose {
		logger.SetVerbose(true)
	}

	pool := services.NewCredentialPool(cfg.APIKeys)
	admission := services.NewAdmissionController(pool, cfg.RequestsPerMinute)

	llm := groq.NewCompletionService(groq.Config{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	})
	embedder := ollama.NewEmbeddingService(ollama.Config{
		BaseURL:    cfg.Embed.BaseURL,
		Model:      cfg.Embed.Model,
		Dimensions: cfg.Embed.Dimensions,
	})

	var reranker driven.Reranker
	if cfg.Rerank.APIKey != "" {
		reranker, err = jina.NewReranker(jina.Config{
			APIKey:  cfg.Rerank.APIKey,
			BaseURL: cfg.Rerank.BaseURL,
			Model:   cfg.Rerank.Model,
		})
		if err != nil {
			return fmt.Errorf("configure reranker: %w", err)
		}
	} else {
		logger.Warn("no rerank API key configured, retrieval keeps vector order")
	}

	var answers driven.AnswerStore
	if cfg.Storage == "sqlite" {
		store, err := sqlite.NewAnswerStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open answer store: %w", err)
		}
		defer store.Close()
		answers = store
		logger.Info("answer cache: sqlite (%s)", store.Path())
	} else {
		answers = memory.NewAnswerStore()
		logger.Info("answer cache: in-memory")
	}

	index := memory.NewVectorIndex()
	retriever := services.NewRetriever(embedder, index, reranker)
	pages := chunker.New(
		chunker.WithChunkTokens(cfg.Chunker.ChunkTokens),
		chunker.WithOverlapTokens(cfg.Chunker.OverlapTokens),
	)
	fetcher := pdf.NewFetcher(pdf.Config{})

	router := services.NewDocumentRouter(
		int64(cfg.Router.DirectSizeMB)<<20,
		int64(cfg.Router.SampleSizeMB)<<20,
	)
	orchestrator := services.NewQueryOrchestrator(
		fetcher, router, pages, retriever,
		pool, admission, llm, answers, cfg.Concurrency,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Probe every key before taking traffic so dead keys are known up front.
	pool.HealthCheckAll(ctx, llm)
	printReport(cmd, pool)

	server := httpapi.NewServer(httpapi.Config{
		Addr:        cfg.ListenAddr,
		BearerToken: cfg.BearerToken,
	}, orchestrator, poolReporter{pool: pool, llm: llm})

	// Rate ceiling and verbosity follow the config file without a restart.
	watcher, err := config.Watch(configPath, func(next *config.Config) {
		admission.SetCeiling(next.RequestsPerMinute)
		logger.SetVerbose(next.Verbose || verbose)
	})
	if err != nil {
		logger.Warn("config watcher disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// poolReporter adapts the credential pool to the driving.PoolReporter port,
// binding the completion service used for probes.
type poolReporter struct {
	pool *services.CredentialPool
	llm  driven.CompletionService
}

func (r poolReporter) Report() []domain.CredentialReport {
	return r.pool.Report()
}

func (r poolReporter) HealthCheck(ctx context.Context) {
	r.pool.HealthCheckAll(ctx, r.llm)
}

// printReport writes the key status table, shared with the keys command.
func printReport(cmd *cobra.Command, pool *services.CredentialPool) {
	reports := pool.Report()
	healthy := 0
	blocked := 0
	for _, rep := range reports {
		if rep.Blocked {
			blocked++
		} else if rep.Healthy {
			healthy++
		}
	}
	cmd.Printf("API keys: %d/%d healthy, %d blocked\n", healthy, len(reports), blocked)
	for _, rep := range reports {
		status := "healthy"
		switch {
		case rep.Blocked:
			status = "BLOCKED"
		case !rep.Healthy:
			status = "unhealthy"
		}
		cmd.Printf("  key #%d (%s): %s, %d uses, %d errors\n",
			rep.Index+1, rep.MaskedKey, status, rep.UsageCount, rep.ErrorCount)
		if rep.LastError != "" {
			cmd.Printf("    last error: %s\n", rep.LastError)
		}
	}
	if best, err := pool.BestAvailable(); err == nil {
		cmd.Printf("next preferred key: #%d (%s)\n", best.Index+1, best.MaskedSecret())
	}
}
