package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"docchat/internal/db"
	"docchat/internal/server"
	"docchat/internal/session"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the docchat HTTP server",
	Long:  `Starts the docchat server with document upload, streaming chat, and session history endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		pipeline, err := createPipelineFromConfig(cfg)
		if err != nil {
			return err
		}

		if err := pipeline.Load(context.Background(), cfg.Index.Dir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load index from %s: %v\n", cfg.Index.Dir, err)
			fmt.Fprintf(os.Stderr, "Starting with an empty index. Upload documents or run `docchat ingest`.\n")
		}

		llmProvider, err := createLLMProviderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}

		dbPath := filepath.Join(cfg.Server.DataDir, "docchat.db")
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		srv := server.New(cfg, pipeline, session.NewStore(database), llmProvider)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "docchat server v%s starting on port %d\n", Version, cfg.Server.Port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "  Index: %s\n", cfg.Index.Dir)
		fmt.Fprintf(os.Stderr, "  Chunks indexed: %d\n", pipeline.Size())

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override the configured server port")
	rootCmd.AddCommand(serveCmd)
}
