package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"whispers.town/llm"
)

// QueryPlan is the model's reading of one user query: whether it asks to
// recall past entries, which index terms to try, and a direct reply either
// way.
type QueryPlan struct {
	IsSearch bool
	Terms    []string
	Reply    string
}

const planMaxTokens = 512

const planPrompt = "Given the following user query, do the following: " +
	"1. Decide if this is a search query about past journal entries (answer 'yes' or 'no' as 'is_search'). " +
	"2. If yes, extract a concise list of only the most relevant, specific search terms, keywords, or tags " +
	"(avoid generic words like 'journal', 'diary', 'entries', 'when', 'date', etc.). " +
	"Let the number of terms be dynamic, based on the query. " +
	"3. Provide a simple, direct response to the query as 'reply'. " +
	"Return ONLY a valid JSON object with keys: 'is_search' (yes/no), 'search_terms' (list), and 'reply' (string). " +
	"Do NOT include any markdown, code block, or extra text. " +
	"Example: For the query 'when was I burnt out', good search_terms would be " +
	"['burnt out', 'burnout', 'exhaustion', 'stress'], not ['journal', 'date', 'when', 'entries']. " +
	"\n\nUser query: "

// ParsePlan turns the model's raw answer into a QueryPlan. Models wrap their
// JSON in code fences despite instructions, so fences are stripped before
// decoding. A response that still does not decode is an error; the caller
// decides how to degrade.
func ParsePlan(raw string) (QueryPlan, error) {
	var parsed struct {
		IsSearch    string   `json:"is_search"`
		SearchTerms []string `json:"search_terms"`
		Reply       string   `json:"reply"`
	}
	if err := json.Unmarshal([]byte(llm.StripCodeFence(raw)), &parsed); err != nil {
		return QueryPlan{}, fmt.Errorf("parse query plan: %w", err)
	}

	plan := QueryPlan{
		IsSearch: strings.EqualFold(strings.TrimSpace(parsed.IsSearch), "yes"),
		Terms:    parsed.SearchTerms,
		Reply:    parsed.Reply,
	}
	if plan.Terms == nil {
		plan.Terms = []string{}
	}
	return plan, nil
}
