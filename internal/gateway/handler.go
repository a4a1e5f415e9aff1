// Package gateway sequences the request pipeline: identity resolution,
// admission control, sanitization, inbound filtering, the guarded upstream
// call, and outbound filtering.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nixxxo/local-llm/internal/clientip"
	"github.com/nixxxo/local-llm/internal/domain"
	"github.com/nixxxo/local-llm/internal/filter"
	"github.com/nixxxo/local-llm/internal/ollama"
	"github.com/nixxxo/local-llm/internal/reputation"
	"github.com/nixxxo/local-llm/internal/sanitize"
	"github.com/nixxxo/local-llm/internal/server"
	"github.com/nixxxo/local-llm/internal/telemetry"
)

// retryAfterSeconds is the hint attached to every admission denial.
const retryAfterSeconds = 60

const (
	cooldownMessage  = "Rate limit exceeded. Please try again later."
	blacklistMessage = "Too many requests. You have been temporarily blocked due to suspicious activity."
)

// Upstream is the model-serving endpoint the gateway guards.
type Upstream interface {
	Chat(ctx context.Context, req *ollama.ChatRequest) (*ollama.ChatResponse, error)
}

// Handler is the gateway orchestrator. All collaborators are injected so
// tests can construct isolated instances and control the clock.
type Handler struct {
	store     *reputation.Store
	sanitizer *sanitize.Sanitizer
	filter    *filter.Filter
	upstream  Upstream
	logger    *slog.Logger
	metrics   *telemetry.Metrics
}

// NewHandler creates the orchestrator. metrics may be nil.
func NewHandler(store *reputation.Store, sanitizer *sanitize.Sanitizer, f *filter.Filter, upstream Upstream, logger *slog.Logger, metrics *telemetry.Metrics) *Handler {
	return &Handler{
		store:     store,
		sanitizer: sanitizer,
		filter:    f,
		upstream:  upstream,
		logger:    logger,
		metrics:   metrics,
	}
}

// HandleChat serves the guarded chat endpoint.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clientID := clientip.FromRequest(r)
	server.AddLogField(ctx, "client_id", clientID)

	decision := h.store.CheckAdmission(clientID)
	h.metrics.RecordAdmission(ctx, decision.Allowed, decision.Blacklisted)

	if info := server.GetRateLimits(ctx); info != nil {
		info.Limit = decision.Limit
		info.Remaining = decision.Remaining
		info.Reset = decision.ResetAt
		if !decision.Allowed {
			info.RetryAfter = retryAfterSeconds * time.Second
		}
	}

	if !decision.Allowed {
		msg := cooldownMessage
		if decision.Blacklisted {
			msg = blacklistMessage
		}
		server.AddLogField(ctx, "denied", admissionReason(decision))
		h.writeError(w, r, domain.ErrAdmission(msg))
		return
	}

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body").WithCause(err))
		return
	}

	sanitized, err := h.sanitizer.Sanitize(&req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	server.AddLogField(ctx, "model", sanitized.Model)
	if rec := server.AuditInfo(ctx); rec != nil {
		rec.Model = sanitized.Model
	}

	// Inbound filtering short-circuits before the upstream is reached.
	if res := h.filter.Apply(sanitized.Message); res.Flagged {
		h.recordFiltered(ctx, "inbound")
		h.writeJSON(w, http.StatusOK, &domain.ChatResponse{
			Message:         domain.Message{Role: "assistant", Content: res.Text},
			Done:            true,
			ModelUsed:       sanitized.Model,
			FilteredContent: true,
		})
		return
	}

	start := time.Now()
	resp, err := h.upstream.Chat(ctx, ollama.FromSanitized(sanitized))
	h.metrics.RecordUpstream(ctx, time.Since(start), err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Token counts are logged but never echoed to the client.
	server.AddLogField(ctx, "prompt_tokens", strconv.Itoa(resp.PromptEvalCount))
	server.AddLogField(ctx, "completion_tokens", strconv.Itoa(resp.EvalCount))

	content := resp.Message.Content
	filtered := false
	if res := h.filter.Apply(content); res.Flagged {
		h.recordFiltered(ctx, "outbound")
		content = res.Text
		filtered = true
	}

	h.writeJSON(w, http.StatusOK, &domain.ChatResponse{
		Message:         domain.Message{Role: "assistant", Content: content},
		Done:            true,
		ModelUsed:       sanitized.Model,
		FilteredContent: filtered,
	})
}

func (h *Handler) recordFiltered(ctx context.Context, direction string) {
	h.metrics.RecordFiltered(ctx, direction)
	server.AddLogField(ctx, "filtered", direction)
	if rec := server.AuditInfo(ctx); rec != nil {
		rec.Filtered = true
	}
}

func admissionReason(d reputation.Decision) string {
	if d.Blacklisted {
		return "blacklisted"
	}
	return "cooldown"
}

// writeError logs the full error server-side and sends the client-safe form.
// Anything that is not a GatewayError is genericized to a 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	server.AddError(r.Context(), err)

	var ge *domain.GatewayError
	if !errors.As(err, &ge) {
		ge = domain.ErrInternal("An error occurred while processing your request").WithCause(err)
	}

	status := ge.HTTPStatusCode()
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("request_id", server.GetRequestID(r.Context())),
			slog.String("type", string(ge.Type)),
			slog.String("error", err.Error()),
		)
	}

	body := &domain.ErrorResponse{Error: ge.Message}
	if ge.Type == domain.ErrorTypeAdmission {
		body.RetryAfter = retryAfterSeconds
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
