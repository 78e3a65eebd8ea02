package cmd

import (
	"path/filepath"
	"testing"
)

func TestQueryMissingIndexReportsEmpty(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	orig := cfgFile
	cfgFile = filepath.Join(dir, ".docchat.yml")
	t.Cleanup(func() { cfgFile = orig })

	// No config file and no persisted index: defaults apply, the load
	// warning goes to stderr, and the command still succeeds.
	if err := runQuery(queryCmd, []string{"what is in the report?"}); err != nil {
		t.Fatalf("query with missing index: %v", err)
	}
}
