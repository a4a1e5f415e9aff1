package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/nixxxo/local-llm/internal/domain"
	"github.com/nixxxo/local-llm/internal/ollama"
	"github.com/nixxxo/local-llm/internal/server"
)

// ParameterTestRequest is the body of the parameter-passthrough demonstration
// endpoint. Params is forwarded to the upstream without clamping.
type ParameterTestRequest struct {
	Message string         `json:"message"`
	Model   string         `json:"model,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

type parameterTestResponse struct {
	Message domain.Message `json:"message"`
	Done    bool           `json:"done"`
	Params  map[string]any `json:"params,omitempty"`
}

// Detection thresholds for the demo's dangerous-settings screen.
const (
	dangerousTemperature       = 1.5
	dangerousTopP              = 0.95
	dangerousRepetitionPenalty = 0.8
)

// HandleParameterTest is the second unguarded contrast pathway: raw model
// options go to the upstream without sanitization, showing what the clamped
// endpoint protects against. Obviously dangerous values are screened so the
// demo itself stays safe.
func (h *Handler) HandleParameterTest(w http.ResponseWriter, r *http.Request) {
	var req ParameterTestRequest
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

	if dangerous := dangerousSettings(req.Params); len(dangerous) > 0 {
		h.writeJSON(w, http.StatusOK, &parameterTestResponse{
			Message: domain.Message{
				Role: "assistant",
				Content: "SECURITY ALERT: Potentially dangerous parameter settings detected: " +
					strings.Join(dangerous, ", ") +
					". In a vulnerable application, these settings could be used to bypass safety filters and generate harmful content.",
			},
			Done: true,
		})
		return
	}

	resp, err := h.upstream.Chat(r.Context(), &ollama.ChatRequest{
		Model:    model,
		Messages: []domain.Message{{Role: "user", Content: req.Message}},
		Stream:   false,
		Options:  req.Params,
	})
	if err != nil {
		server.AddError(r.Context(), err)
		h.writeJSON(w, http.StatusInternalServerError, &domain.ErrorResponse{
			Error: "Failed to get response from Ollama",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, &parameterTestResponse{
		Message: resp.Message,
		Done:    true,
		Params:  req.Params,
	})
}

// dangerousSettings flags parameter values that would weaken the model's
// safety behavior. Absent or zero values are never flagged.
func dangerousSettings(params map[string]any) []string {
	var out []string
	if v, ok := numericParam(params, "temperature"); ok && v > dangerousTemperature {
		out = append(out, "temperature="+formatParam(v)+" (very high)")
	}
	if v, ok := numericParam(params, "top_p"); ok && v > dangerousTopP {
		out = append(out, "top_p="+formatParam(v)+" (very high)")
	}
	if v, ok := numericParam(params, "repetition_penalty"); ok && v != 0 && v < dangerousRepetitionPenalty {
		out = append(out, "repetition_penalty="+formatParam(v)+" (very low)")
	}
	return out
}

func numericParam(params map[string]any, key string) (float64, bool) {
	v, ok := params[key].(float64)
	return v, ok
}

func formatParam(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
