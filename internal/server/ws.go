package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type      string `json:"type"`       // "chat"
	SessionID string `json:"session_id"` // empty for new sessions
	Content   string `json:"content"`
}

// wsResponse is the outgoing WebSocket message format. Token messages
// carry one fragment each; the final message has type "done" with the
// attributed sources.
type wsResponse struct {
	Type      string `json:"type"` // "token", "done" or "error"
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content,omitempty"`
	Sources   any    `json:"sources,omitempty"`
}

// handleWebSocket serves chat over a WebSocket connection, one request
// per message, with the answer streamed back token by token.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.wsError(conn, "", "invalid message format")
			continue
		}
		if req.Content == "" {
			s.wsError(conn, req.SessionID, "content is required")
			continue
		}

		switch req.Type {
		case "chat", "":
			s.handleWSChat(conn, r, req)
		default:
			s.wsError(conn, req.SessionID, "unknown message type: "+req.Type)
		}
	}
}

func (s *Server) handleWSChat(conn *websocket.Conn, r *http.Request, req wsRequest) {
	ctx := r.Context()

	sess, err := s.resolveSession(ctx, req.SessionID)
	if err != nil {
		s.wsError(conn, req.SessionID, "session: "+err.Error())
		return
	}

	results, err := s.pipeline.Query(ctx, req.Content, s.cfg.Retrieval.TopK)
	if err != nil {
		s.wsError(conn, sess.ID, "retrieval failed: "+err.Error())
		return
	}

	responseText, sources := s.answer(ctx, req.Content, results, func(token string) error {
		return conn.WriteJSON(wsResponse{Type: "token", SessionID: sess.ID, Content: token})
	})

	s.recordExchange(ctx, sess.ID, req.Content, responseText, sources)

	if err := conn.WriteJSON(wsResponse{Type: "done", SessionID: sess.ID, Sources: sources}); err != nil {
		log.Warn().Err(err).Msg("websocket write failed")
	}
}

func (s *Server) wsError(conn *websocket.Conn, sessionID, message string) {
	if err := conn.WriteJSON(wsResponse{Type: "error", SessionID: sessionID, Content: message}); err != nil {
		log.Warn().Err(err).Msg("websocket write failed")
	}
}
