package extract

import (
	"errors"
	"strings"
	"testing"
)

func TestSupported(t *testing.T) {
	cases := []struct {
		filename string
		want     bool
	}{
		{"report.pdf", true},
		{"notes.DOCX", true},
		{"README.md", true},
		{"plain.txt", true},
		{"sheet.xlsx", false},
		{"archive.zip", false},
		{"noextension", false},
	}
	for _, tc := range cases {
		if got := Supported(tc.filename); got != tc.want {
			t.Errorf("Supported(%q) = %v, want %v", tc.filename, got, tc.want)
		}
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	_, err := Extract([]byte("data"), "slides.pptx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractPlainText(t *testing.T) {
	text, err := Extract([]byte("hello world"), "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Errorf("got %q", text)
	}
}

func TestExtractMarkdownStripsMarkup(t *testing.T) {
	src := "# Title\n\nSome **bold** and `inline code`.\n\n```\nfenced line\n```\n"
	text, err := Extract([]byte(src), "doc.md")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Title", "Some", "bold", "inline code", "fenced line"} {
		if !strings.Contains(text, want) {
			t.Errorf("extracted text missing %q: %q", want, text)
		}
	}
	for _, markup := range []string{"#", "**", "```"} {
		if strings.Contains(text, markup) {
			t.Errorf("markup %q leaked into extracted text: %q", markup, text)
		}
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	if _, err := Extract([]byte("not a pdf"), "broken.pdf"); err == nil {
		t.Fatal("expected error for corrupt pdf bytes")
	}
}

func TestExtractCorruptDOCX(t *testing.T) {
	if _, err := Extract([]byte("not a zip archive"), "broken.docx"); err == nil {
		t.Fatal("expected error for corrupt docx bytes")
	}
}

func TestDocxXMLToText(t *testing.T) {
	xml := `<w:document><w:body>` +
		`<w:p><w:r><w:t>First sentence.</w:t></w:r><w:r><w:t xml:space="preserve">Still first.</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	got := docxXMLToText(xml)
	want := "First sentence. Still first.\nSecond paragraph."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTruncate(t *testing.T) {
	t.Run("under limit unchanged", func(t *testing.T) {
		if got := Truncate("short", 100); got != "short" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("over limit gets marker", func(t *testing.T) {
		text := strings.Repeat("a", 120)
		got := Truncate(text, 100)
		if !strings.HasSuffix(got, TruncationMarker) {
			t.Errorf("missing truncation marker: %q", got)
		}
		if !strings.HasPrefix(got, strings.Repeat("a", 100)) {
			t.Error("truncated prefix wrong")
		}
		if len(got) != 100+len(TruncationMarker) {
			t.Errorf("unexpected length %d", len(got))
		}
	})

	t.Run("zero limit disables cap", func(t *testing.T) {
		text := strings.Repeat("b", 500)
		if got := Truncate(text, 0); got != text {
			t.Error("expected text unchanged")
		}
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		text := strings.Repeat("é", 10)
		got := Truncate(text, 4)
		if got != strings.Repeat("é", 4)+TruncationMarker {
			t.Errorf("got %q", got)
		}
	})
}
