package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"docchat/internal/config"
	"docchat/internal/extract"
	"docchat/internal/progress"
	"docchat/internal/rag"
	"docchat/internal/splitter"
	"docchat/internal/walker"
)

var ingestClear bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Index documents from a directory into the vector store",
	Long:  `Walks a directory tree, extracts text from supported documents (PDF, DOCX, Markdown, plain text), splits it into chunks, embeds them, and persists the vector index.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestClear, "clear", false, "clear the existing index before ingesting")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rootDir := "."
	if len(args) > 0 {
		rootDir = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pipeline, err := createPipelineFromConfig(cfg)
	if err != nil {
		return err
	}

	if ingestClear {
		if err := os.RemoveAll(cfg.Index.Dir); err != nil {
			return fmt.Errorf("clearing index dir %s: %w", cfg.Index.Dir, err)
		}
	} else if err := pipeline.Load(ctx, cfg.Index.Dir); err == nil {
		fmt.Fprintf(os.Stderr, "Loaded existing index with %d chunks\n", pipeline.Size())
	}

	files, err := walker.Walk(walker.Config{
		RootDir: rootDir,
		Include: cfg.Include,
		Exclude: cfg.Exclude,
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", rootDir, err)
	}
	if len(files) == 0 {
		fmt.Println("No supported documents found.")
		return nil
	}

	reporter := progress.NewReporter()
	reporter.Start(len(files))

	var ingested, skipped, totalChunks int
	for i, file := range files {
		reporter.Update(i+1, file.RelPath)

		chunks, err := ingestFile(ctx, cfg, pipeline, file)
		if err != nil {
			skipped++
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", file.RelPath, err)
			continue
		}
		ingested++
		totalChunks += chunks
	}
	reporter.Finish()

	if err := pipeline.Persist(ctx, cfg.Index.Dir); err != nil {
		return fmt.Errorf("persisting index to %s: %w", cfg.Index.Dir, err)
	}

	fmt.Printf("Ingested %d documents (%d chunks, %d skipped) into %s\n",
		ingested, totalChunks, skipped, cfg.Index.Dir)
	return nil
}

// ingestFile extracts, chunks, and indexes a single document. It returns
// the number of chunks added.
func ingestFile(ctx context.Context, cfg *config.Config, pipeline *rag.Pipeline, file walker.FileInfo) (int, error) {
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return 0, err
	}

	text, err := extract.Extract(data, file.Path)
	if err != nil {
		return 0, err
	}
	text = extract.Truncate(text, cfg.Chunking.MaxDocumentChars)

	chunks, err := splitter.Split(text, file.RelPath, cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no text content")
	}

	return pipeline.Ingest(ctx, chunks, uuid.NewString(), file.RelPath)
}
