// Package extract turns uploaded document bytes into plain text for
// segmentation. Supported formats are PDF, DOCX, Markdown, and plain
// text, dispatched by file extension.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrUnsupportedFormat is returned for extensions outside the supported
// set. Callers surface this to the uploader rather than guessing a
// decoder by content sniffing.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// TruncationMarker is appended when a document exceeds the size limit.
const TruncationMarker = "\n[Document truncated due to size limit]"

// maxPDFPages caps how many pages are read from a single PDF.
const maxPDFPages = 50

// Supported reports whether the filename's extension has a registered
// extractor.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".md", ".txt":
		return true
	}
	return false
}

// Extract converts document bytes to plain text based on the filename's
// extension.
func Extract(data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	case ".md":
		return extractMarkdown(data)
	case ".txt":
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Truncate caps text at maxChars runes, appending a marker so readers
// know content was dropped. maxChars <= 0 disables the cap.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + TruncationMarker
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}

	numPages := reader.NumPage()
	if numPages > maxPDFPages {
		numPages = maxPDFPages
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Skip damaged pages, keep the rest of the document.
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, "\n\n"), nil
}

func extractDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading docx: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	return docxXMLToText(content), nil
}

// docxXMLToText pulls the run text out of a word/document.xml body.
// Paragraph closes become newlines so sentence boundaries survive.
func docxXMLToText(xmlContent string) string {
	var out strings.Builder
	rest := xmlContent
	for {
		start := strings.Index(rest, "<w:t")
		if start < 0 {
			break
		}
		rest = rest[start:]
		close := strings.Index(rest, ">")
		if close < 0 {
			break
		}
		// Self-closing <w:t/> carries no text.
		if strings.HasSuffix(rest[:close+1], "/>") {
			rest = rest[close+1:]
			continue
		}
		rest = rest[close+1:]
		end := strings.Index(rest, "</w:t>")
		if end < 0 {
			break
		}
		out.WriteString(rest[:end])
		rest = rest[end:]

		// A paragraph break before the next text run maps to a newline.
		next := strings.Index(rest, "<w:t")
		if next < 0 {
			break
		}
		if strings.Contains(rest[:next], "</w:p>") {
			out.WriteString("\n")
		} else {
			out.WriteString(" ")
		}
	}
	return strings.TrimSpace(out.String())
}

// extractMarkdown walks the parsed AST and collects the raw text
// segments, so markup characters do not pollute the index.
func extractMarkdown(data []byte) (string, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(data))

	var out strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if _, isBlock := n.(*ast.Paragraph); isBlock {
				out.WriteString("\n\n")
			} else if _, isHeading := n.(*ast.Heading); isHeading {
				out.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			out.Write(node.Segment.Value(data))
			if node.SoftLineBreak() || node.HardLineBreak() {
				out.WriteString("\n")
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				out.Write(seg.Value(data))
			}
			out.WriteString("\n")
		case *ast.CodeSpan:
			out.Write(node.Text(data))
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			out.Write(node.URL(data))
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("parsing markdown: %w", err)
	}
	return strings.TrimSpace(out.String()), nil
}
