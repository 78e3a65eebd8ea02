package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the persisted vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := os.RemoveAll(cfg.Index.Dir); err != nil {
			return fmt.Errorf("removing index dir %s: %w", cfg.Index.Dir, err)
		}
		fmt.Printf("Cleared index at %s\n", cfg.Index.Dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
