package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"docchat/internal/config"
	"docchat/internal/db"
	"docchat/internal/embeddings"
	"docchat/internal/llm"
	"docchat/internal/rag"
	"docchat/internal/session"
	"docchat/internal/vectordb"
)

// stubLLM streams a fixed answer regardless of the prompt.
type stubLLM struct {
	tokens []string
}

func (s *stubLLM) Name() string { return "stub" }

func (s *stubLLM) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: strings.Join(s.tokens, "")}, nil
}

func (s *stubLLM) CompleteStream(_ context.Context, _ llm.CompletionRequest, onToken func(string) error) (*llm.CompletionResponse, error) {
	for _, tok := range s.tokens {
		if err := onToken(tok); err != nil {
			return nil, err
		}
	}
	return &llm.CompletionResponse{Content: strings.Join(s.tokens, ""), FinishReason: "stop"}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.EmbeddingDims = 8
	cfg.Index.Dir = t.TempDir()

	embedder := embeddings.NewHashEmbedder(cfg.EmbeddingDims)
	store := vectordb.NewMemoryStore(cfg.EmbeddingDims, float32(cfg.Retrieval.MinSimilarity))
	pipeline, err := rag.New(embedder, store)
	if err != nil {
		t.Fatal(err)
	}

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	return New(cfg, pipeline, session.NewStore(database), &stubLLM{tokens: []string{"The answer ", "is here."}})
}

func multipartUpload(t *testing.T, url string, clearExisting string, files map[string]string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if clearExisting != "" {
		if err := mw.WriteField("clear_existing", clearExisting); err != nil {
			t.Fatal(err)
		}
	}
	mw.Close()

	resp, err := http.Post(url+"/upload", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// sseEvents parses the data: lines of an SSE body into raw payloads.
func sseEvents(body string) []string {
	var events []string
	for _, line := range strings.Split(body, "\n") {
		if payload, ok := strings.CutPrefix(line, "data: "); ok {
			events = append(events, payload)
		}
	}
	return events
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestUploadAndStatus(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := multipartUpload(t, ts.URL, "", map[string]string{
		"notes.txt": "AI helps healthcare teams with documentation.",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}

	var uploadResp struct {
		Documents []struct {
			Filename string `json:"filename"`
			DocID    string `json:"doc_id"`
			Chunks   int    `json:"chunks"`
			Error    string `json:"error"`
		} `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		t.Fatal(err)
	}
	if len(uploadResp.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(uploadResp.Documents))
	}
	if uploadResp.Documents[0].Error != "" {
		t.Fatalf("unexpected upload error: %s", uploadResp.Documents[0].Error)
	}
	if uploadResp.Documents[0].Chunks == 0 || uploadResp.Documents[0].DocID == "" {
		t.Errorf("unexpected document record: %+v", uploadResp.Documents[0])
	}

	statusResp, err := http.Get(ts.URL + "/documents/status")
	if err != nil {
		t.Fatal(err)
	}
	defer statusResp.Body.Close()

	var status struct {
		TotalChunks   int `json:"total_chunks"`
		DocumentCount int `json:"document_count"`
	}
	if err := json.NewDecoder(statusResp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.DocumentCount != 1 || status.TotalChunks == 0 {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestUploadUnsupportedFileDoesNotAbortBatch(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := multipartUpload(t, ts.URL, "", map[string]string{
		"good.txt": "Supported content.",
		"bad.xlsx": "not supported",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}

	var uploadResp struct {
		Documents []struct {
			Filename string `json:"filename"`
			Error    string `json:"error"`
		} `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		t.Fatal(err)
	}
	if len(uploadResp.Documents) != 2 {
		t.Fatalf("expected 2 document records, got %d", len(uploadResp.Documents))
	}
	byName := map[string]string{}
	for _, d := range uploadResp.Documents {
		byName[d.Filename] = d.Error
	}
	if byName["good.txt"] != "" {
		t.Errorf("good.txt should have succeeded: %s", byName["good.txt"])
	}
	if byName["bad.xlsx"] == "" {
		t.Error("bad.xlsx should have been rejected")
	}
}

func TestUploadClearExistingReplacesIndex(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	multipartUpload(t, ts.URL, "", map[string]string{"first.txt": "first document"}).Body.Close()
	multipartUpload(t, ts.URL, "true", map[string]string{"second.txt": "second document"}).Body.Close()

	if docs := srv.pipeline.Documents(); len(docs) != 1 || docs[0].Filename != "second.txt" {
		t.Fatalf("expected only second.txt indexed, got %+v", docs)
	}

	// With clear_existing=false both documents accumulate.
	multipartUpload(t, ts.URL, "false", map[string]string{"third.txt": "third document"}).Body.Close()
	if docs := srv.pipeline.Documents(); len(docs) != 2 {
		t.Fatalf("expected 2 documents after additive upload, got %+v", docs)
	}
}

func TestChatEmptyIndexStreamsNoAnswer(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body, _ := json.Marshal(chatRequest{Message: "anything at all"})
	resp, err := http.Post(ts.URL+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	events := sseEvents(buf.String())
	if len(events) < 3 {
		t.Fatalf("expected token, sources, and [DONE] events, got %v", events)
	}
	if !strings.Contains(events[0], "couldn't find relevant information") {
		t.Errorf("expected no-answer sentinel, got %s", events[0])
	}
	if events[len(events)-1] != "[DONE]" {
		t.Errorf("expected terminating [DONE], got %s", events[len(events)-1])
	}
}

func TestChatStreamsAnswerAndSources(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	content := "The quarterly report shows revenue grew by ten percent."
	multipartUpload(t, ts.URL, "", map[string]string{"report.txt": content}).Body.Close()

	// Hash embeddings give a perfect score for the exact chunk text.
	body, _ := json.Marshal(chatRequest{Message: content})
	resp, err := http.Post(ts.URL+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	events := sseEvents(buf.String())

	var answer strings.Builder
	var sessionID string
	sawSources := false
	for _, ev := range events {
		if ev == "[DONE]" {
			continue
		}
		var payload struct {
			Type      string `json:"type"`
			Content   string `json:"content"`
			SessionID string `json:"session_id"`
			Sources   []struct {
				Filename string `json:"filename"`
			} `json:"sources"`
		}
		if err := json.Unmarshal([]byte(ev), &payload); err != nil {
			t.Fatalf("bad event %q: %v", ev, err)
		}
		switch payload.Type {
		case "token":
			answer.WriteString(payload.Content)
		case "sources":
			sawSources = true
			sessionID = payload.SessionID
			if len(payload.Sources) == 0 || payload.Sources[0].Filename != "report.txt" {
				t.Errorf("unexpected sources: %+v", payload.Sources)
			}
		}
	}
	if answer.String() != "The answer is here." {
		t.Errorf("streamed answer = %q", answer.String())
	}
	if !sawSources || sessionID == "" {
		t.Fatal("expected a sources event carrying the session id")
	}

	// The exchange lands in session history.
	histResp, err := http.Get(ts.URL + "/sessions/" + sessionID)
	if err != nil {
		t.Fatal(err)
	}
	defer histResp.Body.Close()

	var hist struct {
		History []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"history"`
	}
	if err := json.NewDecoder(histResp.Body).Decode(&hist); err != nil {
		t.Fatal(err)
	}
	if len(hist.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(hist.History))
	}
	if hist.History[0].Role != "user" || hist.History[1].Role != "assistant" {
		t.Errorf("history out of order: %+v", hist.History)
	}
}

func TestChatRequiresMessage(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/chat", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDocumentsClear(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	multipartUpload(t, ts.URL, "", map[string]string{"doc.txt": "content to forget"}).Body.Close()

	resp, err := http.Post(ts.URL+"/documents/clear", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear status = %d", resp.StatusCode)
	}

	if srv.pipeline.Size() != 0 {
		t.Errorf("index not empty after clear: %d", srv.pipeline.Size())
	}
}

func TestGracefulShutdownIsCleanExit(t *testing.T) {
	srv := newTestServer(t)
	srv.cfg.Server.Port = 0

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	time.Sleep(50 * time.Millisecond)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("Start after graceful shutdown: got %v, want nil", err)
	}
}

func TestSessionHistoryUnknownSession(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/sessions/no-such-session")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
