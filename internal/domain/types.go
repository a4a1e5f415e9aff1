package domain

// Message is a single chat message exchanged with the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the inbound JSON body for the guarded chat endpoint. All
// fields except Message are optional; pointers distinguish "absent" from
// zero values so the sanitizer can apply defaults.
type ChatRequest struct {
	Message          string   `json:"message"`
	Model            string   `json:"model,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	StopSequences    []string `json:"stop_sequences,omitempty"`
	// Seed decodes as a float so fractional values are accepted; the
	// sanitizer truncates it to an integer.
	Seed *float64 `json:"seed,omitempty"`
}

// SanitizedRequest is the validated, clamped form of a ChatRequest. It is
// constructed once per request by the sanitizer and immutable afterward; every
// numeric field is guaranteed to lie within its declared clamp range.
type SanitizedRequest struct {
	Message          string
	Model            string
	Temperature      float64
	TopP             float64
	MaxTokens        int
	FrequencyPenalty float64
	PresencePenalty  float64
	StopSequences    []string
	Seed             *int
}

// ChatResponse is the success body returned to the client. It deliberately
// carries only the minimum: no token counts, no parameter echo, no timing.
type ChatResponse struct {
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	ModelUsed       string  `json:"model_used"`
	FilteredContent bool    `json:"filtered_content"`
}

// ErrorResponse is the body for every error status. RetryAfter is only set on
// admission denials.
type ErrorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}
