package sanitize

import (
	"strings"
	"testing"

	"github.com/nixxxo/local-llm/internal/domain"
)

func newSanitizer() *Sanitizer {
	return New("gemma3:1b", []string{"mistral"})
}

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

func TestSanitizeMessage(t *testing.T) {
	s := newSanitizer()

	t.Run("missing message", func(t *testing.T) {
		_, err := s.Sanitize(&domain.ChatRequest{})
		if err == nil {
			t.Fatal("expected error for missing message")
		}
		if !domain.IsType(err, domain.ErrorTypeValidation) {
			t.Errorf("error type = %v, want validation", err)
		}
	})

	t.Run("whitespace-only message", func(t *testing.T) {
		if _, err := s.Sanitize(&domain.ChatRequest{Message: "   "}); err == nil {
			t.Fatal("expected error for whitespace-only message")
		}
	})

	t.Run("oversized message is rejected without echoing it", func(t *testing.T) {
		big := strings.Repeat("a", MaxMessageLen+1)
		_, err := s.Sanitize(&domain.ChatRequest{Message: big})
		if err == nil {
			t.Fatal("expected error for oversized message")
		}
		if strings.Contains(err.Error(), big) {
			t.Error("error must not contain the oversized content")
		}
	})

	t.Run("message is trimmed", func(t *testing.T) {
		got, err := s.Sanitize(&domain.ChatRequest{Message: "  hello  "})
		if err != nil {
			t.Fatalf("Sanitize() error = %v", err)
		}
		if got.Message != "hello" {
			t.Errorf("Message = %q, want %q", got.Message, "hello")
		}
	})
}

func TestSanitizeModel(t *testing.T) {
	s := newSanitizer()

	tests := []struct {
		model string
		want  string
	}{
		{"gemma3:1b", "gemma3:1b"},
		{"mistral", "mistral"},
		{"", "gemma3:1b"},
		{"gpt-4", "gemma3:1b"},
		{"../../etc/passwd", "gemma3:1b"},
	}

	for _, tt := range tests {
		got, err := s.Sanitize(&domain.ChatRequest{Message: "hi", Model: tt.model})
		if err != nil {
			t.Fatalf("Sanitize() error = %v", err)
		}
		if got.Model != tt.want {
			t.Errorf("model %q resolved to %q, want %q", tt.model, got.Model, tt.want)
		}
	}
}

func TestSanitizeClamping(t *testing.T) {
	s := newSanitizer()

	tests := []struct {
		name string
		req  domain.ChatRequest
		want domain.SanitizedRequest
	}{
		{
			name: "defaults when absent",
			req:  domain.ChatRequest{Message: "hi"},
			want: domain.SanitizedRequest{Temperature: 0.7, TopP: 0.9, MaxTokens: 2048},
		},
		{
			name: "in-range values pass through exactly",
			req: domain.ChatRequest{
				Message: "hi", Temperature: f(0.3), TopP: f(0.5),
				MaxTokens: i(100), FrequencyPenalty: f(1.5), PresencePenalty: f(0.2),
			},
			want: domain.SanitizedRequest{
				Temperature: 0.3, TopP: 0.5, MaxTokens: 100,
				FrequencyPenalty: 1.5, PresencePenalty: 0.2,
			},
		},
		{
			name: "values above range land on the upper bound",
			req: domain.ChatRequest{
				Message: "hi", Temperature: f(5.0), TopP: f(2.0),
				MaxTokens: i(100000), FrequencyPenalty: f(9), PresencePenalty: f(3),
			},
			want: domain.SanitizedRequest{
				Temperature: 1, TopP: 1, MaxTokens: 4096,
				FrequencyPenalty: 2, PresencePenalty: 2,
			},
		},
		{
			name: "values below range land on the lower bound",
			req: domain.ChatRequest{
				Message: "hi", Temperature: f(-1), TopP: f(-0.5),
				MaxTokens: i(0), FrequencyPenalty: f(-2), PresencePenalty: f(-0.1),
			},
			want: domain.SanitizedRequest{
				Temperature: 0, TopP: 0, MaxTokens: 1,
				FrequencyPenalty: 0, PresencePenalty: 0,
			},
		},
		{
			name: "boundary values are kept exactly",
			req: domain.ChatRequest{
				Message: "hi", Temperature: f(1), TopP: f(0), MaxTokens: i(4096),
			},
			want: domain.SanitizedRequest{Temperature: 1, TopP: 0, MaxTokens: 4096},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Sanitize(&tt.req)
			if err != nil {
				t.Fatalf("Sanitize() error = %v", err)
			}
			if got.Temperature != tt.want.Temperature {
				t.Errorf("Temperature = %v, want %v", got.Temperature, tt.want.Temperature)
			}
			if got.TopP != tt.want.TopP {
				t.Errorf("TopP = %v, want %v", got.TopP, tt.want.TopP)
			}
			if got.MaxTokens != tt.want.MaxTokens {
				t.Errorf("MaxTokens = %v, want %v", got.MaxTokens, tt.want.MaxTokens)
			}
			if got.FrequencyPenalty != tt.want.FrequencyPenalty {
				t.Errorf("FrequencyPenalty = %v, want %v", got.FrequencyPenalty, tt.want.FrequencyPenalty)
			}
			if got.PresencePenalty != tt.want.PresencePenalty {
				t.Errorf("PresencePenalty = %v, want %v", got.PresencePenalty, tt.want.PresencePenalty)
			}
		})
	}
}

func TestSanitizeStopSequencesAndSeed(t *testing.T) {
	s := newSanitizer()

	t.Run("stop sequences truncated to five", func(t *testing.T) {
		got, err := s.Sanitize(&domain.ChatRequest{
			Message:       "hi",
			StopSequences: []string{"a", "b", "c", "d", "e", "f", "g"},
		})
		if err != nil {
			t.Fatalf("Sanitize() error = %v", err)
		}
		if len(got.StopSequences) != MaxStopSequences {
			t.Errorf("len(StopSequences) = %d, want %d", len(got.StopSequences), MaxStopSequences)
		}
	})

	t.Run("absent stop sequences stay unset", func(t *testing.T) {
		got, err := s.Sanitize(&domain.ChatRequest{Message: "hi"})
		if err != nil {
			t.Fatalf("Sanitize() error = %v", err)
		}
		if got.StopSequences != nil {
			t.Errorf("StopSequences = %v, want nil", got.StopSequences)
		}
	})

	t.Run("seed passes through", func(t *testing.T) {
		got, err := s.Sanitize(&domain.ChatRequest{Message: "hi", Seed: f(42)})
		if err != nil {
			t.Fatalf("Sanitize() error = %v", err)
		}
		if got.Seed == nil || *got.Seed != 42 {
			t.Errorf("Seed = %v, want 42", got.Seed)
		}
	})

	t.Run("fractional seed truncates toward zero", func(t *testing.T) {
		tests := []struct {
			seed float64
			want int
		}{
			{3.5, 3},
			{3.9, 3},
			{-3.5, -3},
		}
		for _, tt := range tests {
			got, err := s.Sanitize(&domain.ChatRequest{Message: "hi", Seed: f(tt.seed)})
			if err != nil {
				t.Fatalf("Sanitize() error = %v", err)
			}
			if got.Seed == nil || *got.Seed != tt.want {
				t.Errorf("seed %v = %v, want %d", tt.seed, got.Seed, tt.want)
			}
		}
	})
}
