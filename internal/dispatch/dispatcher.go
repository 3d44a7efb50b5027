package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kwisener01/workassist/internal/metrics"
	"github.com/kwisener01/workassist/internal/models"
	"github.com/kwisener01/workassist/internal/persona"
	"github.com/kwisener01/workassist/internal/provider"
	"github.com/kwisener01/workassist/internal/telemetry"
)

// Params carries the fixed completion parameters used for every dispatch.
type Params struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultParams matches the product defaults.
func DefaultParams() Params {
	return Params{
		Model:       "claude-3-5-sonnet-20241022",
		MaxTokens:   4000,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
	}
}

// Result is a successful completion.
type Result struct {
	Persona      *models.Persona
	Text         string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// Dispatcher composes a prompt from a persona and a problem statement and
// issues one synchronous request to the completion provider. Each dispatch is
// independent; there is no caching, retrying, or shared state between calls.
type Dispatcher struct {
	registry *persona.Registry
	provider provider.Protocol
	params   Params
	metrics  *metrics.Metrics
}

// NewDispatcher creates a dispatcher. metrics may be nil in tests.
func NewDispatcher(reg *persona.Registry, prov provider.Protocol, params Params, m *metrics.Metrics) *Dispatcher {
	if params.Model == "" {
		params = DefaultParams()
	}
	return &Dispatcher{
		registry: reg,
		provider: prov,
		params:   params,
		metrics:  m,
	}
}

// Available reports whether dispatching is currently possible. Every caller
// gates on this one check so the assist feature is enabled or disabled
// uniformly.
func (d *Dispatcher) Available() bool {
	return d.provider != nil && d.provider.Available()
}

// Validate checks the request and resolves its persona without contacting
// the provider.
func (d *Dispatcher) Validate(req *models.AssistRequest) (*models.Persona, error) {
	if strings.TrimSpace(req.ProblemDescription) == "" {
		return nil, &ValidationError{Field: "problem_description", Reason: "must not be empty"}
	}
	if !req.Priority.Valid() {
		return nil, &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown value %q", req.Priority)}
	}
	if !req.Urgency.Valid() {
		return nil, &ValidationError{Field: "urgency", Reason: fmt.Sprintf("unknown value %q", req.Urgency)}
	}

	p, err := d.registry.Get(req.PersonaID)
	if err != nil {
		return nil, &ValidationError{Field: "persona_id", Reason: fmt.Sprintf("unknown persona %q", req.PersonaID)}
	}
	return p, nil
}

// Dispatch validates the request, composes the prompt, and performs one
// blocking provider call bounded by the configured timeout.
//
// Failure taxonomy:
//   - *ValidationError: empty problem description or unknown persona,
//     raised before any network call.
//   - *AuthError: provider rejected the credential (401/403).
//   - *TransportError: network failure, timeout, or malformed response.
func (d *Dispatcher) Dispatch(ctx context.Context, req *models.AssistRequest) (*Result, error) {
	p, err := d.Validate(req)
	if err != nil {
		return nil, err
	}

	if !d.Available() {
		return nil, ErrUnavailable
	}

	prompt := composePrompt(p, req)

	callCtx, cancel := context.WithTimeout(ctx, d.params.Timeout)
	defer cancel()

	if telemetry.Tracer != nil {
		var span trace.Span
		callCtx, span = telemetry.Tracer.Start(callCtx, "dispatch.create_message",
			trace.WithAttributes(attribute.String("persona.id", string(p.ID))))
		defer span.End()
	}
	if telemetry.AssistRequests != nil {
		telemetry.AssistRequests.Add(callCtx, 1,
			metric.WithAttributes(attribute.String("persona.id", string(p.ID))))
	}

	start := time.Now()
	resp, err := d.provider.CreateMessage(callCtx, &provider.MessageRequest{
		Model:       d.params.Model,
		MaxTokens:   d.params.MaxTokens,
		Temperature: d.params.Temperature,
		Messages:    []provider.Message{{Role: "user", Content: prompt}},
	})
	elapsed := time.Since(start)

	if d.metrics != nil {
		d.metrics.DispatchDuration.WithLabelValues(string(p.ID)).Observe(elapsed.Seconds())
	}
	if telemetry.DispatchLatency != nil {
		telemetry.DispatchLatency.Record(callCtx, float64(elapsed.Milliseconds()),
			metric.WithAttributes(attribute.String("persona.id", string(p.ID))))
	}

	if err != nil {
		mapped := d.mapProviderError(p, err)
		if d.metrics != nil {
			d.metrics.DispatchesTotal.WithLabelValues(string(p.ID), "error").Inc()
			d.metrics.ProviderErrors.WithLabelValues(errorKind(mapped)).Inc()
		}
		if telemetry.AssistFailures != nil {
			telemetry.AssistFailures.Add(callCtx, 1,
				metric.WithAttributes(attribute.String("error.kind", errorKind(mapped))))
		}
		return nil, mapped
	}

	if d.metrics != nil {
		d.metrics.DispatchesTotal.WithLabelValues(string(p.ID), "success").Inc()
		d.metrics.ProviderTokens.WithLabelValues("input").Add(float64(resp.InputTokens))
		d.metrics.ProviderTokens.WithLabelValues("output").Add(float64(resp.OutputTokens))
	}

	return &Result{
		Persona:      p,
		Text:         resp.Text,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		Duration:     elapsed,
	}, nil
}

// mapProviderError converts raw provider failures into the dispatcher's
// typed taxonomy.
func (d *Dispatcher) mapProviderError(p *models.Persona, err error) error {
	var statusErr *provider.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &AuthError{
				Persona:    p.Name,
				StatusCode: statusErr.StatusCode,
				Detail:     statusErr.Body,
			}
		}
		return &TransportError{
			Persona: p.Name,
			Detail:  fmt.Sprintf("provider returned status %d: %s", statusErr.StatusCode, statusErr.Body),
		}
	}
	return &TransportError{Persona: p.Name, Err: err}
}

func errorKind(err error) string {
	switch err.(type) {
	case *AuthError:
		return "auth"
	case *TransportError:
		return "transport"
	case *ValidationError:
		return "validation"
	}
	return "unknown"
}

// composePrompt joins the persona's prompt prefix, the problem statement, the
// additional context line, and the fixed instructional suffix.
func composePrompt(p *models.Persona, req *models.AssistRequest) string {
	var b strings.Builder
	b.WriteString(p.PromptPrefix)
	b.WriteString("\n\nProblem/Task: ")
	b.WriteString(req.ProblemDescription)
	b.WriteString("\n\nAdditional Context: ")
	b.WriteString(contextLine(req))
	b.WriteString(promptSuffix)
	return b.String()
}

// contextLine folds priority and urgency into the free-text context the way
// the product always did: "Priority: X, Urgency: Y. <context>".
func contextLine(req *models.AssistRequest) string {
	var parts []string
	if req.Priority != "" {
		parts = append(parts, "Priority: "+string(req.Priority))
	}
	if req.Urgency != "" {
		parts = append(parts, "Urgency: "+string(req.Urgency))
	}
	line := strings.Join(parts, ", ")
	if line != "" && req.AdditionalContext != "" {
		return line + ". " + req.AdditionalContext
	}
	if line != "" {
		return line
	}
	return req.AdditionalContext
}

const promptSuffix = `

Please provide a comprehensive response that includes:
1. Analysis of the situation
2. Specific recommendations or solutions
3. Step-by-step action items where applicable
4. Expected outcomes or benefits
5. Any templates, examples, or tools that would be helpful

Format your response clearly with headers and bullet points where appropriate.`
