package search

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"whispers.town/algolia"
	"whispers.town/llm"
)

// Searcher is the slice of the index client the orchestrator uses.
type Searcher interface {
	Query(ctx context.Context, term, userID string) ([]algolia.Hit, error)
}

// Orchestrator answers free-text queries in two phases: one model call to
// plan the search, then one index query per planned term. The model supplies
// synonyms and paraphrases the user did not type, which is what makes the
// keyword index useful for recall questions.
type Orchestrator struct {
	Model  llm.LanguageModel
	Index  Searcher
	Logger *log.Logger
}

func NewOrchestrator(model llm.LanguageModel, index Searcher, logger *log.Logger) *Orchestrator {
	return &Orchestrator{Model: model, Index: index, Logger: logger}
}

// Result is the combined answer for one query.
type Result struct {
	Reply    string        `json:"gemini_response"`
	Hits     []algolia.Hit `json:"results"`
	Terms    []string      `json:"search_terms"`
	IsSearch bool          `json:"is_search"`
}

// Search plans and runs one orchestrated query. A model transport failure is
// an error; a plan that fails to parse degrades to a non-search with an
// empty reply. Index queries run per term in plan order, and each hit
// identifier appears once, at its first occurrence.
func (o *Orchestrator) Search(ctx context.Context, query, userID string) (*Result, error) {
	raw, err := o.Model.Complete(ctx, planPrompt+query, planMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("plan query: %w", err)
	}

	plan, err := ParsePlan(raw)
	if err != nil {
		o.Logger.Warn("query plan did not parse", "error", err, "raw", raw)
		plan = QueryPlan{Terms: []string{}}
	}

	result := &Result{
		Reply:    plan.Reply,
		Hits:     []algolia.Hit{},
		Terms:    plan.Terms,
		IsSearch: plan.IsSearch,
	}

	if !plan.IsSearch || len(plan.Terms) == 0 {
		return result, nil
	}

	seen := make(map[string]bool)
	for _, term := range plan.Terms {
		hits, err := o.Index.Query(ctx, term, userID)
		if err != nil {
			return nil, fmt.Errorf("query index for %q: %w", term, err)
		}
		o.Logger.Debug("term queried", "term", term, "hits", len(hits))

		for _, hit := range hits {
			if hit.ObjectID == "" || seen[hit.ObjectID] {
				continue
			}
			seen[hit.ObjectID] = true
			result.Hits = append(result.Hits, hit)
		}
	}

	return result, nil
}
