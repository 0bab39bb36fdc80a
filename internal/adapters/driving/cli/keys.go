package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/adapters/driven/llm/groq"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/config"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/services"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Probe and report API key health",
	Long: `Runs a one-shot health check against every configured API key and
prints a status table. Useful before deploying or after adding keys.`,
	RunE: runKeys,
}

func init() {
	rootCmd.AddCommand(keysCmd)
}

func runKeys(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool := services.NewCredentialPool(cfg.APIKeys)
	llm := groq.NewCompletionService(groq.Config{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	pool.HealthCheckAll(ctx, llm)
	printReport(cmd, pool)
	return nil
}
