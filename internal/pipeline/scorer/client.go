// Package scorer evaluates call transcripts with the LLM provider and
// enforces the scoring contract before anything reaches the lifecycle.
package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"callqa_backend/internal/calls/domain"
	"callqa_backend/platform/ai/openrouter"
	"callqa_backend/platform/apperr"
)

const systemPrompt = `You are a strict quality analyst for an Indian utility customer-care center. You evaluate one call transcript and return ONLY a JSON object, no prose, with exactly these fields:

{
  "language_spoken": "<primary language of the call>",
  "sop_compliance_score": <0..1>,
  "communication_score": <0..1>,
  "sentiment_stabilization_score": <exactly 0, 0.5 or 1>,
  "resolution_validity_score": <exactly 0, 0.75 or 1>,
  "overall_quality_score": <0..1>,
  "coaching_priority": <0..1, higher means the agent needs coaching sooner>,
  "escalation_risk": <true|false>,
  "why_flagged": "<required non-empty reason when escalation_risk is true, else empty string>",
  "business_insight": "<one or two sentences for operations leadership>",
  "coaching_insight": "<one or two sentences of concrete feedback for the agent>",
  "issue_analysis": {"category": "...", "summary": "..."},
  "resolution_analysis": {"resolved": true|false, "summary": "..."},
  "sop_deviations": [{"step": "...", "description": "...", "severity": "low|medium|high"}],
  "sentiment_trajectory": [{"turn": 1, "speaker": "customer", "sentiment": -1..1}]
}

Scoring rules:
- sentiment_stabilization_score: 1 if the agent calmed an upset customer or kept a calm customer calm, 0.5 for partial stabilization, 0 if the customer ended worse.
- resolution_validity_score: 1 for a verified complete resolution, 0.75 for a plausible resolution with a committed follow-up, 0 otherwise.
- escalation_risk is true when the customer signals regulator complaints, safety hazards, repeated unresolved contacts or legal threats. Never set it true without a concrete why_flagged.`

type Client struct {
	llm *openrouter.Client
}

func NewClient(llm *openrouter.Client) *Client {
	return &Client{llm: llm}
}

// CallContext is the metadata handed to the model alongside the transcript.
type CallContext struct {
	CallContext          string
	PrimaryIssueCategory string
	CustomerLanguage     string
	AgentManualNote      string
}

func buildUserPrompt(transcript string, meta CallContext) string {
	var b strings.Builder
	b.WriteString("Call metadata:\n")
	fmt.Fprintf(&b, "- call context: %s\n", meta.CallContext)
	if meta.PrimaryIssueCategory != "" {
		fmt.Fprintf(&b, "- reported issue category: %s\n", meta.PrimaryIssueCategory)
	}
	if meta.CustomerLanguage != "" {
		fmt.Fprintf(&b, "- customer preferred language: %s\n", meta.CustomerLanguage)
	}
	if meta.AgentManualNote != "" {
		fmt.Fprintf(&b, "- agent note: %s\n", meta.AgentManualNote)
	}
	b.WriteString("\nTranscript:\n")
	b.WriteString(transcript)
	return b.String()
}

// Score evaluates one transcript. Provider outages surface as transient
// errors; a response that cannot be parsed into a valid result is permanent.
func (c *Client) Score(ctx context.Context, transcript string, meta CallContext) (*domain.ScoringResult, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, apperr.Invariant("cannot score an empty transcript")
	}

	raw, err := c.llm.Complete(ctx, systemPrompt, buildUserPrompt(transcript, meta), openrouter.Options{
		JSONMode:  true,
		MaxTokens: 2000,
	})
	if err != nil {
		var statusErr *openrouter.StatusError
		if errors.As(err, &statusErr) && statusErr.Retryable() {
			return nil, apperr.Wrap(apperr.KindTransient, "scoring provider unavailable", err)
		}
		return nil, apperr.Wrap(apperr.KindTransient, "scoring request failed", err)
	}

	return parseResult(raw)
}

// ScoreWithRetry retries transient provider failures with exponential
// backoff. A malformed result is retried once; models occasionally recover
// on a second completion, but a repeat offense is final.
func (c *Client) ScoreWithRetry(ctx context.Context, transcript string, meta CallContext) (*domain.ScoringResult, error) {
	var result *domain.ScoringResult
	invariantRetries := 1

	operation := func() error {
		out, err := c.Score(ctx, transcript, meta)
		if err != nil {
			if apperr.IsRetryable(err) {
				return err
			}
			if apperr.Is(err, apperr.KindInvariant) && invariantRetries > 0 {
				invariantRetries--
				return err
			}
			return backoff.Permanent(err)
		}
		result = out
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return result, nil
}

// parseResult decodes the model output into a ScoringResult. The decoder is
// deliberately strict: unknown shapes fail instead of being coerced.
func parseResult(raw string) (*domain.ScoringResult, error) {
	cleaned := stripCodeFence(raw)

	var result domain.ScoringResult
	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := dec.Decode(&result); err != nil {
		return nil, apperr.Wrap(apperr.KindInvariant, "scoring response is not valid JSON", err)
	}
	return &result, nil
}

// stripCodeFence removes a Markdown code fence if the model wrapped its JSON
// in one despite the JSON response format.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
