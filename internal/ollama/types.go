package ollama

import "github.com/nixxxo/local-llm/internal/domain"

// ChatRequest is the wire format for the model server's chat endpoint.
// Optional generation parameters are pointers so unset fields are omitted
// rather than sent as zeros.
type ChatRequest struct {
	Model            string           `json:"model"`
	Messages         []domain.Message `json:"messages"`
	Stream           bool             `json:"stream"`
	Temperature      *float64         `json:"temperature,omitempty"`
	TopP             *float64         `json:"top_p,omitempty"`
	MaxTokens        *int             `json:"max_tokens,omitempty"`
	FrequencyPenalty *float64         `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64         `json:"presence_penalty,omitempty"`
	Stop             []string         `json:"stop,omitempty"`
	Seed             *int             `json:"seed,omitempty"`
	// Options carries raw, unvalidated model options. Only the
	// parameter-test passthrough sets it; the guarded path always sends the
	// clamped top-level fields instead.
	Options map[string]any `json:"options,omitempty"`
}

// ChatResponse is the subset of the model server's reply the gateway uses:
// the assistant message plus token accounting.
type ChatResponse struct {
	Model           string         `json:"model"`
	Message         domain.Message `json:"message"`
	Done            bool           `json:"done"`
	PromptEvalCount int            `json:"prompt_eval_count"`
	EvalCount       int            `json:"eval_count"`
}

// FromSanitized builds the upstream request for a sanitized chat request.
// Every clamped parameter is sent explicitly; only the optional seed and stop
// sequences may be absent.
func FromSanitized(s *domain.SanitizedRequest) *ChatRequest {
	return &ChatRequest{
		Model:            s.Model,
		Messages:         []domain.Message{{Role: "user", Content: s.Message}},
		Stream:           false,
		Temperature:      &s.Temperature,
		TopP:             &s.TopP,
		MaxTokens:        &s.MaxTokens,
		FrequencyPenalty: &s.FrequencyPenalty,
		PresencePenalty:  &s.PresencePenalty,
		Stop:             s.StopSequences,
		Seed:             s.Seed,
	}
}
