package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nixxxo/local-llm/internal/domain"
	"github.com/nixxxo/local-llm/internal/ollama"
	"github.com/nixxxo/local-llm/internal/server"
)

// DirectChatRequest is the body of the unguarded demonstration endpoint: a
// raw conversation history injected by the caller.
type DirectChatRequest struct {
	Messages []domain.Message `json:"messages"`
	Model    string           `json:"model,omitempty"`
}

// directChatResponse mirrors the minimal shape the demonstration path returns.
type directChatResponse struct {
	Message domain.Message `json:"message"`
	Done    bool           `json:"done"`
}

const systemPromptAlert = "SECURITY ALERT: Malicious system prompt detected! In a vulnerable application, this could override safety measures."

// HandleDirectChat is the intentionally unguarded sibling pathway kept for
// contrast with the secure endpoint: no admission control, no sanitization,
// no outbound filtering. Only an obviously malicious system prompt is
// screened so the demo cannot be weaponized outright.
func (h *Handler) HandleDirectChat(w http.ResponseWriter, r *http.Request) {
	var req DirectChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body").WithCause(err))
		return
	}

	model := req.Model
	if model == "" {
		model = "gemma3:1b"
	}
	if rec := server.AuditInfo(r.Context()); rec != nil {
		rec.Model = model
	}

	for _, m := range req.Messages {
		if m.Role != "system" {
			continue
		}
		lower := strings.ToLower(m.Content)
		if strings.Contains(lower, "evil") || strings.Contains(lower, "malicious") || strings.Contains(lower, "ignore safety") {
			h.writeJSON(w, http.StatusOK, &directChatResponse{
				Message: domain.Message{Role: "assistant", Content: systemPromptAlert},
				Done:    true,
			})
			return
		}
	}

	resp, err := h.upstream.Chat(r.Context(), &ollama.ChatRequest{
		Model:    model,
		Messages: req.Messages,
		Stream:   false,
	})
	if err != nil {
		server.AddError(r.Context(), err)
		h.writeJSON(w, http.StatusInternalServerError, &domain.ErrorResponse{
			Error: "Failed to get response from Ollama",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, &directChatResponse{
		Message: resp.Message,
		Done:    true,
	})
}
