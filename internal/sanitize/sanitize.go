// Package sanitize normalizes and bounds chat request parameters before they
// reach the upstream call.
package sanitize

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/nixxxo/local-llm/internal/domain"
)

// Clamp ranges and defaults. Values outside a range land exactly on the
// nearest bound; they are never rejected.
const (
	MaxMessageLen = 10000

	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultMaxTokens   = 2048

	MaxStopSequences = 5
)

// Sanitizer validates and clamps raw chat requests. The model allow-list and
// default are injected so deployments can change them without code edits.
type Sanitizer struct {
	allowedModels map[string]struct{}
	defaultModel  string
}

// New creates a Sanitizer. The default model is always considered allowed.
func New(defaultModel string, allowedModels []string) *Sanitizer {
	allowed := make(map[string]struct{}, len(allowedModels)+1)
	allowed[defaultModel] = struct{}{}
	for _, m := range allowedModels {
		allowed[m] = struct{}{}
	}
	return &Sanitizer{allowedModels: allowed, defaultModel: defaultModel}
}

// Sanitize validates the message field and clamps every generation parameter
// into its safe range. It fails only on the message field: absent or
// oversized. The oversized message is never echoed back in the error.
func (s *Sanitizer) Sanitize(req *domain.ChatRequest) (*domain.SanitizedRequest, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, domain.ErrValidation("message is required and must be a string")
	}
	if utf8.RuneCountInString(msg) > MaxMessageLen {
		return nil, domain.ErrValidation("message exceeds maximum length")
	}

	out := &domain.SanitizedRequest{
		Message:          msg,
		Model:            s.resolveModel(req.Model),
		Temperature:      clampFloat(req.Temperature, DefaultTemperature, 0, 1),
		TopP:             clampFloat(req.TopP, DefaultTopP, 0, 1),
		MaxTokens:        clampInt(req.MaxTokens, DefaultMaxTokens, 1, 4096),
		FrequencyPenalty: clampFloat(req.FrequencyPenalty, 0, 0, 2),
		PresencePenalty:  clampFloat(req.PresencePenalty, 0, 0, 2),
	}

	if req.Seed != nil {
		// Truncate toward zero; a fractional seed is not an error.
		seed := int(*req.Seed)
		out.Seed = &seed
	}

	if req.StopSequences != nil {
		stops := req.StopSequences
		if len(stops) > MaxStopSequences {
			stops = stops[:MaxStopSequences]
		}
		out.StopSequences = stops
	}

	return out, nil
}

// resolveModel silently replaces anything outside the allow-list with the
// default model.
func (s *Sanitizer) resolveModel(model string) string {
	if _, ok := s.allowedModels[model]; ok {
		return model
	}
	return s.defaultModel
}

func clampFloat(v *float64, def, lo, hi float64) float64 {
	if v == nil {
		return def
	}
	// NaN cannot arrive through JSON, but fall to the lower bound rather
	// than propagate if it ever does.
	if math.IsNaN(*v) || *v < lo {
		return lo
	}
	if *v > hi {
		return hi
	}
	return *v
}

func clampInt(v *int, def, lo, hi int) int {
	if v == nil {
		return def
	}
	if *v < lo {
		return lo
	}
	if *v > hi {
		return hi
	}
	return *v
}
