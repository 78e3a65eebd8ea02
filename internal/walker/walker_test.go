package walker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func relPaths(files []FileInfo) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.RelPath
	}
	return paths
}

func TestWalkFindsSupportedDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "guide.md", "# Guide")
	writeFile(t, root, "notes.txt", "notes")
	writeFile(t, root, "docs/deep/handbook.txt", "handbook")
	writeFile(t, root, "program.go", "package main")
	writeFile(t, root, "image.png", "\x89PNG")

	files, err := Walk(Config{RootDir: root})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	got := relPaths(files)
	if len(got) != 3 {
		t.Fatalf("expected 3 documents, got %v", got)
	}
	for _, want := range []string{"guide.md", "notes.txt", "docs/deep/handbook.txt"} {
		found := false
		for _, p := range got {
			if p == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %q in results, got %v", want, got)
		}
	}
}

func TestWalkSkipsDefaultExcludedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.txt", "keep")
	writeFile(t, root, ".git/config.txt", "ignored")
	writeFile(t, root, "node_modules/pkg/readme.md", "ignored")

	files, err := Walk(Config{RootDir: root})
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if strings.Contains(f.RelPath, ".git") || strings.Contains(f.RelPath, "node_modules") {
			t.Errorf("excluded directory leaked into results: %s", f.RelPath)
		}
	}
	if len(files) != 1 {
		t.Fatalf("expected only keep.txt, got %v", relPaths(files))
	}
}

func TestWalkIncludeExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/intro.md", "intro")
	writeFile(t, root, "docs/internal/secret.md", "secret")
	writeFile(t, root, "readme.txt", "readme")

	files, err := Walk(Config{
		RootDir: root,
		Include: []string{"docs/**/*.md"},
		Exclude: []string{"docs/internal/**"},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := relPaths(files)
	if len(got) != 1 || got[0] != "docs/intro.md" {
		t.Fatalf("expected only docs/intro.md, got %v", got)
	}
}

func TestWalkSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.txt", "ok")
	writeFile(t, root, "big.txt", strings.Repeat("x", 2048))

	files, err := Walk(Config{RootDir: root, MaxFileSize: 1024})
	if err != nil {
		t.Fatal(err)
	}
	got := relPaths(files)
	if len(got) != 1 || got[0] != "small.txt" {
		t.Fatalf("expected only small.txt, got %v", got)
	}
}

func TestMatchers(t *testing.T) {
	if !MatchesInclude("any/path.txt", nil) {
		t.Error("empty include patterns should match everything")
	}
	if MatchesExclude("any/path.txt", nil) {
		t.Error("empty exclude patterns should match nothing")
	}
	if !MatchesInclude("a/b/c.md", []string{"**/*.md"}) {
		t.Error("doublestar pattern should match nested path")
	}
	if !MatchesExclude("deep/dir/notes.txt", []string{"notes.txt"}) {
		t.Error("bare filename pattern should match basename")
	}
}
