// Package openai provides a language-assistant provider backed by the OpenAI
// chat completions API (or any OpenAI-compatible endpoint via WithBaseURL).
//
// Structured calls (grammar feedback, alternatives, memory) use JSON response
// mode and tolerate models that wrap output in markdown code fences.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/parley-ai/parley/pkg/provider/assist"
	"github.com/parley-ai/parley/pkg/types"
)

// Provider implements assist.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

// Compile-time interface check.
var _ assist.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI assistant Provider.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: model}, nil
}

// ---- prompts ----

const feedbackPrompt = `You are an English grammar coach for language learners.
Analyse the learner's message and respond with a JSON object:
{"has_errors": bool, "corrected_text": string, "edits": [{"wrong": string, "right": string, "reason": string}],
"feedback": string, "feedback_points": [{"part": string, "issue": string, "fix": string}],
"sentence_feedback": [{"sentence": string, "comment": string}],
"natural_alternative": string, "natural_reason": string, "natural_rewrite": string}
When the message is already correct, set has_errors to false and corrected_text to the original text.`

const alternativesPrompt = `You are a native English speaker helping a language learner.
Given the learner's message, respond with a JSON object:
{"alternatives": [{"text": string, "tone": string, "nuance": string}]}
Provide up to three alternatives a native speaker would actually say.`

const memoryPrompt = `You maintain long-term memory about a language learner from their chat history.
Given the current summary, the current profile and the recent history, respond with a JSON object:
{"memory_summary": string, "memory_profile": {"hobbies": [string], "goals": [string], "projects": [string],
"personality": [string], "daily_routine": [string], "preferences": [string], "background": [string], "notes": [string]}}
Merge new facts with the existing profile. Omit anything not supported by the history.`

// GrammarFeedback implements assist.Provider.
func (p *Provider) GrammarFeedback(ctx context.Context, text string) (*types.FeedbackResult, error) {
	raw, err := p.completeJSON(ctx, feedbackPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("openai: grammar feedback: %w", err)
	}

	var result types.FeedbackResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("openai: grammar feedback: unmarshal: %w", err)
	}
	return &result, nil
}

// NativeAlternatives implements assist.Provider.
func (p *Provider) NativeAlternatives(ctx context.Context, text string) ([]types.Alternative, error) {
	raw, err := p.completeJSON(ctx, alternativesPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("openai: alternatives: %w", err)
	}

	var result struct {
		Alternatives []types.Alternative `json:"alternatives"`
		Error        string              `json:"error,omitempty"`
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("openai: alternatives: unmarshal: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("openai: alternatives: %s", result.Error)
	}
	return result.Alternatives, nil
}

// Translate implements assist.Provider. An empty translation is an error.
func (p *Provider) Translate(ctx context.Context, text, targetLang string, register types.Register) (string, error) {
	style := "polite (존댓말)"
	if register == types.RegisterCasual {
		style = "casual (반말)"
	}
	system := fmt.Sprintf(
		"Translate the user's message into %s using a %s register. Respond with the translation only, no commentary.",
		targetLang, style)

	out, err := p.complete(ctx, system, text, nil)
	if err != nil {
		return "", fmt.Errorf("openai: translate: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("openai: translate: empty translation")
	}
	return out, nil
}

// ChatReply implements assist.Provider. A blank reply is an error.
func (p *Provider) ChatReply(ctx context.Context, req assist.ChatRequest) (string, error) {
	var sb strings.Builder
	sb.WriteString("You are a friendly conversation partner helping someone practise English. Keep replies short and conversational, and gently model correct usage.\n")

	if req.Persona != nil {
		fmt.Fprintf(&sb, "Your name is %s. Personality traits on a 1-5 scale: warmth %d, humor %d, formality %d, curiosity %d, patience %d.\n",
			req.Persona.Name,
			req.Persona.Traits.Warmth, req.Persona.Traits.Humor, req.Persona.Traits.Formality,
			req.Persona.Traits.Curiosity, req.Persona.Traits.Patience)
	}
	if req.MemorySummary != "" {
		fmt.Fprintf(&sb, "What you remember about the learner: %s\n", req.MemorySummary)
	}
	if req.MemoryProfile != nil && !req.MemoryProfile.IsEmpty() {
		profileJSON, err := json.Marshal(req.MemoryProfile)
		if err == nil {
			fmt.Fprintf(&sb, "Learner profile: %s\n", profileJSON)
		}
	}

	out, err := p.complete(ctx, sb.String(), req.Message, req.History)
	if err != nil {
		return "", fmt.Errorf("openai: chat reply: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("openai: chat reply: blank reply")
	}
	return out, nil
}

// UpdateMemorySummary implements assist.Provider.
func (p *Provider) UpdateMemorySummary(ctx context.Context, req assist.MemoryRequest) (*assist.MemoryResult, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current summary: %s\n", req.CurrentSummary)
	if req.CurrentProfile != nil {
		profileJSON, err := json.Marshal(req.CurrentProfile)
		if err == nil {
			fmt.Fprintf(&sb, "Current profile: %s\n", profileJSON)
		}
	}
	sb.WriteString("Recent history:\n")
	for _, m := range req.History {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Text)
	}

	raw, err := p.completeJSON(ctx, memoryPrompt, sb.String())
	if err != nil {
		return nil, fmt.Errorf("openai: memory summary: %w", err)
	}

	var wire struct {
		MemorySummary string               `json:"memory_summary"`
		MemoryProfile *types.MemoryProfile `json:"memory_profile,omitempty"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("openai: memory summary: unmarshal: %w", err)
	}
	return &assist.MemoryResult{Summary: wire.MemorySummary, Profile: wire.MemoryProfile}, nil
}

// ---- completion plumbing ----

// complete runs a plain chat completion and returns the first choice's text.
func (p *Provider) complete(ctx context.Context, system, user string, history []types.ChatMessage) (string, error) {
	params := p.buildParams(system, user, history)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// completeJSON runs a chat completion in JSON response mode and returns the
// raw JSON text with any surrounding markdown code fences stripped.
func (p *Provider) completeJSON(ctx context.Context, system, user string) (string, error) {
	params := p.buildParams(system, user, nil)
	params.ResponseFormat = oai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return stripFences(resp.Choices[0].Message.Content), nil
}

func (p *Provider) buildParams(system, user string, history []types.ChatMessage) oai.ChatCompletionNewParams {
	messages := []oai.ChatCompletionMessageParamUnion{
		oai.SystemMessage(system),
	}
	for _, m := range history {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		if m.Role == types.RoleAI {
			messages = append(messages, oai.AssistantMessage(m.Text))
		} else {
			messages = append(messages, oai.UserMessage(m.Text))
		}
	}
	messages = append(messages, oai.UserMessage(user))

	return oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(p.model),
		Messages:    messages,
		Temperature: param.NewOpt(0.7),
	}
}

// stripFences removes a surrounding markdown code fence (``` or ```json) from
// model output. Some models fence JSON even in JSON response mode.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(s)
}
