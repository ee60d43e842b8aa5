package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleChatStart handles POST /api/chat/start.
func (s *Server) handleChatStart(w http.ResponseWriter, r *http.Request) error {
	conv, err := s.deps.StartChat(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		return Wrap("api.chat_start", err)
	}
	writeJSON(w, http.StatusCreated, conv)
	return nil
}

// handleChatMessage handles POST /api/chat/message.
func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) error {
	const op = "api.chat_message"
	var req chatMessageRequest
	if err := decodeJSON(w, r, maxJSONBodySize, &req); err != nil {
		return Wrap(op, err)
	}
	reply, err := s.deps.SendChat(r.Context(), ownerFrom(r.Context()), req.ConversationID, req.Message)
	if err != nil {
		return Wrap(op, err)
	}
	writeJSON(w, http.StatusOK, reply)
	return nil
}

// handleChatEnd handles DELETE /api/chat/{conversationId}.
func (s *Server) handleChatEnd(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "conversationId")
	if err := s.deps.EndChat(r.Context(), ownerFrom(r.Context()), id); err != nil {
		return Wrap("api.chat_end", err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
