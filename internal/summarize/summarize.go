package summarize

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/TobiSchelling/NewsDigest/internal/config"
	"github.com/TobiSchelling/NewsDigest/internal/llm"
)

const DefaultMaxChars = 800

// Summarizer turns raw article text into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Truncator keeps the first MaxChars characters of the trimmed text.
type Truncator struct {
	MaxChars int
}

// Summarize implements Summarizer. It never fails.
func (t Truncator) Summarize(_ context.Context, text string) (string, error) {
	limit := t.MaxChars
	if limit <= 0 {
		limit = DefaultMaxChars
	}
	snippet := strings.TrimSpace(text)
	runes := []rune(snippet)
	if len(runes) > limit {
		return string(runes[:limit]) + "...", nil
	}
	return snippet, nil
}

// LLMSummarizer asks an LLM for a summary and truncates when the LLM fails.
type LLMSummarizer struct {
	provider  llm.Provider
	prompt    string
	maxTokens int
	fallback  Truncator
}

// NewLLMSummarizer creates a summarizer using a few-shot prompt built from
// examples and tone.
func NewLLMSummarizer(provider llm.Provider, examples []config.SummaryExample, tone string, maxTokens, maxChars int) *LLMSummarizer {
	if maxTokens <= 0 {
		maxTokens = 200
	}
	return &LLMSummarizer{
		provider:  provider,
		prompt:    BuildPrompt(examples, tone),
		maxTokens: maxTokens,
		fallback:  Truncator{MaxChars: maxChars},
	}
}

// New returns an LLM summarizer when provider is non-nil, otherwise a Truncator.
func New(provider llm.Provider, cfg config.Summarization) Summarizer {
	if provider == nil {
		return Truncator{MaxChars: cfg.MaxChars}
	}
	return NewLLMSummarizer(provider, cfg.Examples, cfg.Tone, cfg.MaxTokens, cfg.MaxChars)
}

// Summarize implements Summarizer.
func (s *LLMSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	prompt := strings.Replace(s.prompt, "{article}", text, 1)
	resp, err := s.provider.Generate(ctx, prompt, s.maxTokens)
	if err != nil || strings.TrimSpace(resp) == "" {
		log.Printf("LLM summary failed, truncating instead: %v", err)
		return s.fallback.Summarize(ctx, text)
	}

	if summary := llm.StringField(llm.ParseJSONResponse(resp), "summary"); summary != "" {
		return summary, nil
	}
	return strings.TrimSpace(resp), nil
}

// BuildPrompt builds a few-shot summarization prompt. The returned text
// contains a single {article} placeholder.
func BuildPrompt(examples []config.SummaryExample, tone string) string {
	if tone == "" {
		tone = "concise neutral"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are a news summarization assistant. Tone: %s. Summarize the article in 2-4 sentences.\n\n", tone)
	for _, ex := range examples {
		fmt.Fprintf(&b, "Article:\n%s\nSummary:\n%s\n---\n", ex.Article, ex.Summary)
	}
	b.WriteString("Now summarize the following article:\n{article}\n\n")
	b.WriteString("Respond with ONLY this JSON:\n{\"summary\": \"your summary\"}\n")
	return b.String()
}
