package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docchat/internal/config"
	"docchat/internal/llm"
	"docchat/internal/vectordb"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Semantically search the indexed documents",
	Long:  `Searches the vector index using a natural language query and prints the most relevant passages. With --ask, the retrieved passages are sent to the configured LLM for a grounded answer.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().Int("limit", 0, "maximum number of results (defaults to retrieval.top_k)")
	queryCmd.Flags().Bool("ask", false, "generate an answer from the results with the configured LLM")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	queryText := args[0]

	limit, _ := cmd.Flags().GetInt("limit")
	ask, _ := cmd.Flags().GetBool("ask")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = cfg.Retrieval.TopK
	}

	pipeline, err := createPipelineFromConfig(cfg)
	if err != nil {
		return err
	}

	if err := pipeline.Load(ctx, cfg.Index.Dir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load index from %s: %v\n", cfg.Index.Dir, err)
	}

	if pipeline.Size() == 0 {
		fmt.Println("Index is empty. Run `docchat ingest` first.")
		return nil
	}

	results, err := pipeline.Query(ctx, queryText, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	fmt.Print(vectordb.FormatResults(results))

	if !ask {
		return nil
	}
	return answerQuery(ctx, cfg, queryText, results)
}

func answerQuery(ctx context.Context, cfg *config.Config, queryText string, results []vectordb.SearchResult) error {
	if len(results) == 0 {
		fmt.Println(llm.NoAnswerMessage)
		return nil
	}

	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}

	req := llm.BuildGroundedRequest(queryText, vectordb.BuildContext(results))
	resp, err := provider.Complete(ctx, req)
	if err != nil {
		return fmt.Errorf("generating answer: %w", err)
	}

	fmt.Println("--- Answer ---")
	fmt.Println(resp.Content)
	return nil
}
