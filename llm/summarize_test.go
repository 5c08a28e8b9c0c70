package llm

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type scriptedModel struct {
	response string
	err      error
	prompt   string
}

func (m *scriptedModel) Complete(_ context.Context, prompt string, _ int) (string, error) {
	m.prompt = prompt
	return m.response, m.err
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     EntryCard
	}{
		{
			name:     "clean JSON",
			response: `{"title": "Burnout at work", "summary": "Felt burnt out after a long week.", "tags": ["burnout", "work"]}`,
			want: EntryCard{
				Title:   "Burnout at work",
				Summary: "Felt burnt out after a long week.",
				Tags:    []string{"burnout", "work"},
			},
		},
		{
			name:     "fenced JSON",
			response: "```json\n{\"title\": \"Quiet day\", \"summary\": \"Nothing much.\", \"tags\": [\"calm\"]}\n```",
			want: EntryCard{
				Title:   "Quiet day",
				Summary: "Nothing much.",
				Tags:    []string{"calm"},
			},
		},
		{
			name:     "prose fallback keeps the raw text as summary",
			response: "Today you wrote about feeling tired.",
			want: EntryCard{
				Summary: "Today you wrote about feeling tired.",
				Tags:    []string{},
			},
		},
		{
			name:     "missing tags become empty list",
			response: `{"title": "T", "summary": "S"}`,
			want:     EntryCard{Title: "T", Summary: "S", Tags: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &scriptedModel{response: tt.response}
			card, err := Summarize(context.Background(), model, "some entry text")
			if err != nil {
				t.Fatalf("Summarize returned error: %v", err)
			}
			if !reflect.DeepEqual(*card, tt.want) {
				t.Errorf("Summarize() = %+v, want %+v", *card, tt.want)
			}
		})
	}
}

func TestSummarizeIncludesEntryText(t *testing.T) {
	model := &scriptedModel{response: `{"title": "T", "summary": "S", "tags": []}`}
	if _, err := Summarize(context.Background(), model, "walked by the river"); err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if want := "walked by the river"; !strings.Contains(model.prompt, want) {
		t.Errorf("prompt does not contain the entry text %q", want)
	}
}

func TestSummarizeModelError(t *testing.T) {
	model := &scriptedModel{err: errors.New("quota exceeded")}
	if _, err := Summarize(context.Background(), model, "text"); err == nil {
		t.Fatal("expected error when the model call fails")
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a": 1}`, `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fence without newline", "```{\"a\": 1}```", `{"a": 1}`},
		{"surrounding whitespace", "  ```json\n{\"a\": 1}\n```  ", `{"a": 1}`},
		{"plain text", "hello", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFence(tt.in); got != tt.want {
				t.Errorf("StripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
