package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"docchat/internal/extract"
	"docchat/internal/llm"
	"docchat/internal/session"
	"docchat/internal/splitter"
	"docchat/internal/vectordb"
)

// maxUploadBytes bounds one multipart upload request.
const maxUploadBytes = 256 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// uploadedDocument reports the outcome for one file in an upload batch.
type uploadedDocument struct {
	Filename   string `json:"filename"`
	DocumentID string `json:"doc_id,omitempty"`
	Chunks     int    `json:"chunks"`
	Error      string `json:"error,omitempty"`
}

// handleUpload ingests one or more documents from a multipart form.
// Unless clear_existing=false is sent, the index is wiped first so the
// chat only answers from the latest upload. A failing file does not
// abort the rest of the batch.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	clearExisting := true
	if v := r.FormValue("clear_existing"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid clear_existing value: "+v, http.StatusBadRequest)
			return
		}
		clearExisting = parsed
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, "no files provided", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if clearExisting {
		if err := s.pipeline.Clear(ctx); err != nil {
			http.Error(w, "clearing index: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	var processed []uploadedDocument
	succeeded := 0
	for _, fh := range files {
		doc := s.ingestUpload(r, fh.Filename, fh)
		if doc.Error == "" {
			succeeded++
		}
		processed = append(processed, doc)
	}

	if err := s.pipeline.Persist(ctx, s.cfg.Index.Dir); err != nil {
		log.Warn().Err(err).Msg("could not persist index after upload")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   fmt.Sprintf("Successfully processed %d documents", succeeded),
		"documents": processed,
	})
}

// ingestUpload runs extract, split, and ingest for one uploaded file,
// capturing any failure in the returned record.
func (s *Server) ingestUpload(r *http.Request, filename string, fh *multipart.FileHeader) uploadedDocument {
	doc := uploadedDocument{Filename: filename}

	if !extract.Supported(filename) {
		doc.Error = "unsupported file type"
		return doc
	}

	f, err := fh.Open()
	if err != nil {
		doc.Error = "opening file: " + err.Error()
		return doc
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		doc.Error = "reading file: " + err.Error()
		return doc
	}

	text, err := extract.Extract(data, filename)
	if err != nil {
		doc.Error = err.Error()
		return doc
	}
	text = extract.Truncate(text, s.cfg.Chunking.MaxDocumentChars)

	chunks, err := splitter.Split(text, filename, s.cfg.Chunking.Size, s.cfg.Chunking.Overlap)
	if err != nil {
		doc.Error = err.Error()
		return doc
	}

	docID := uuid.New().String()
	added, err := s.pipeline.Ingest(r.Context(), chunks, docID, filename)
	if err != nil {
		doc.Error = err.Error()
		return doc
	}

	doc.DocumentID = docID
	doc.Chunks = added
	log.Info().Str("filename", filename).Int("chunks", added).Msg("document uploaded")
	return doc
}

// handleDocumentsStatus reports what is currently indexed.
func (s *Server) handleDocumentsStatus(w http.ResponseWriter, r *http.Request) {
	docs := s.pipeline.Documents()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_chunks":   s.pipeline.Size(),
		"document_count": len(docs),
		"documents":      docs,
	})
}

// handleDocumentsClear wipes the index and its persisted artifacts.
func (s *Server) handleDocumentsClear(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.Clear(r.Context()); err != nil {
		http.Error(w, "clearing index: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := os.RemoveAll(s.cfg.Index.Dir); err != nil {
		log.Warn().Err(err).Str("dir", s.cfg.Index.Dir).Msg("could not remove persisted index")
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "All documents cleared successfully",
	})
}

// handleSessionHistory returns the messages of a session.
func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	history, err := s.sessions.History(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []session.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"history":    history,
	})
}

// chatRequest is the JSON body of POST /chat.
type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// handleChat answers a question over the indexed documents, streaming
// tokens as server-sent events. The stream carries token events, one
// sources event, and a terminating [DONE] line.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sess, err := s.resolveSession(ctx, req.SessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	results, err := s.pipeline.Query(ctx, req.Message, s.cfg.Retrieval.TopK)
	if err != nil {
		http.Error(w, "retrieval failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	stream := &sseWriter{w: w, flusher: flusher}

	responseText, sources := s.answer(ctx, req.Message, results, func(token string) error {
		return stream.event(map[string]any{"type": "token", "content": token})
	})

	s.recordExchange(ctx, sess.ID, req.Message, responseText, sources)

	stream.event(map[string]any{
		"type":       "sources",
		"sources":    sources,
		"session_id": sess.ID,
	})
	stream.done()
}

// answer produces the assistant response for a query given its
// retrieval results, invoking onToken for each streamed fragment. With
// no relevant chunks the sentinel no-answer message is emitted instead
// of calling the model.
func (s *Server) answer(ctx context.Context, query string, results []vectordb.SearchResult, onToken func(string) error) (string, []session.Source) {
	if len(results) == 0 {
		onToken(llm.NoAnswerMessage)
		return llm.NoAnswerMessage, nil
	}

	sources := make([]session.Source, len(results))
	for i, res := range results {
		sources[i] = session.Source{
			Filename:   res.Metadata.Filename,
			ChunkIndex: res.Metadata.ChunkIndex,
			Score:      res.Score,
		}
	}

	req := llm.BuildGroundedRequest(query, vectordb.BuildContext(results))
	resp, err := s.llm.CompleteStream(ctx, req, onToken)
	if err != nil {
		log.Error().Err(err).Msg("chat completion failed")
		msg := "Error generating response: " + err.Error()
		onToken(msg)
		return msg, sources
	}
	return resp.Content, sources
}

// resolveSession loads the requested session or creates a fresh one
// when no ID is given or the ID is unknown.
func (s *Server) resolveSession(ctx context.Context, id string) (*session.Session, error) {
	if id != "" {
		sess, err := s.sessions.Get(ctx, id)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return nil, err
		}
	}
	return s.sessions.Create(ctx)
}

// recordExchange appends the user question and assistant answer to the
// session history. History is best-effort; a storage failure does not
// fail the chat.
func (s *Server) recordExchange(ctx context.Context, sessionID, question, answer string, sources []session.Source) {
	if _, err := s.sessions.Append(ctx, sessionID, session.Message{Role: "user", Content: question}); err != nil {
		log.Warn().Err(err).Msg("could not record user message")
		return
	}
	if _, err := s.sessions.Append(ctx, sessionID, session.Message{Role: "assistant", Content: answer, Sources: sources}); err != nil {
		log.Warn().Err(err).Msg("could not record assistant message")
	}
}

// sseWriter emits server-sent events in the data: <json> framing.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseWriter) event(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) done() {
	fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
