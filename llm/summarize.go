package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const summarizeMaxTokens = 256

// EntryCard is the generated front matter for a journal entry.
type EntryCard struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

const summarizePrompt = "Given the following journal entry, generate: " +
	"1. A short, relevant title (3-7 words, no punctuation). " +
	"2. A concise summary (1-2 sentences, no advice or analysis). " +
	"3. 3-5 tags (single words or short phrases). " +
	"Return ONLY a valid JSON object with keys: 'title', 'summary', 'tags'. " +
	"Do NOT include any markdown, code block, or extra text. " +
	`Example: {"title": "Burnout at work", "summary": "Felt burnt out after a long week.", "tags": ["burnout", "work"]} ` +
	"\n\nJournal Entry:\n"

// Summarize asks the model for a title, summary, and tags for one entry. A
// response that does not parse as JSON is kept as the summary verbatim so
// the entry is never lost to a formatting hiccup.
func Summarize(ctx context.Context, model LanguageModel, text string) (*EntryCard, error) {
	raw, err := model.Complete(ctx, summarizePrompt+text, summarizeMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	var card EntryCard
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &card); err != nil {
		return &EntryCard{Summary: raw, Tags: []string{}}, nil
	}
	if card.Tags == nil {
		card.Tags = []string{}
	}
	return &card, nil
}

// StripCodeFence removes a wrapping markdown code fence, with or without a
// language tag. Models add these despite being told not to.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 && !strings.ContainsAny(s[:idx], "{[") {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
