package algolia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient("APP", "write-key", "search-key", "whispers_logs")
	c.WriteBase = server.URL
	c.SearchBase = server.URL
	return c
}

func TestSaveObjectCreate(t *testing.T) {
	var gotMethod, gotPath string
	var gotRecord Record

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		if key := r.Header.Get("X-Algolia-API-Key"); key != "write-key" {
			t.Errorf("save used key %q, want write-key", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRecord); err != nil {
			t.Fatalf("decode record: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"objectID": "assigned-1", "taskID": 42, "createdAt": "2025-07-24T10:22:00Z"}`)
	}))

	result, err := c.SaveObject(context.Background(), Record{
		UserID:    "u1",
		SessionID: "s1",
		Title:     "MCP Test Entry",
		Tags:      []string{"test"},
	})
	if err != nil {
		t.Fatalf("SaveObject returned error: %v", err)
	}

	if gotMethod != "POST" || gotPath != "/1/indexes/whispers_logs" {
		t.Errorf("create used %s %s, want POST /1/indexes/whispers_logs", gotMethod, gotPath)
	}
	if gotRecord.Title != "MCP Test Entry" {
		t.Errorf("record title = %q", gotRecord.Title)
	}
	if result.ObjectID != "assigned-1" {
		t.Errorf("ObjectID = %q, want assigned-1", result.ObjectID)
	}
}

func TestSaveObjectUpdateIsIdempotent(t *testing.T) {
	stored := make(map[string]Record)

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PUT" {
			t.Errorf("update used method %s, want PUT", r.Method)
		}
		id := strings.TrimPrefix(r.URL.Path, "/1/indexes/whispers_logs/")
		var rec Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			t.Fatalf("decode record: %v", err)
		}
		stored[id] = rec
		fmt.Fprintf(w, `{"objectID": %q, "taskID": 1}`, id)
	}))

	rec := Record{ObjectID: "entry-9", UserID: "u1", Title: "Same title"}
	for i := 0; i < 2; i++ {
		result, err := c.SaveObject(context.Background(), rec)
		if err != nil {
			t.Fatalf("SaveObject call %d returned error: %v", i+1, err)
		}
		if result.ObjectID != "entry-9" {
			t.Errorf("call %d ObjectID = %q, want entry-9", i+1, result.ObjectID)
		}
	}

	if len(stored) != 1 {
		t.Fatalf("expected 1 stored object after repeated upsert, got %d", len(stored))
	}
	if stored["entry-9"].Title != "Same title" {
		t.Errorf("stored record mutated: %+v", stored["entry-9"])
	}
}

func TestQuery(t *testing.T) {
	var gotParams url.Values

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/indexes/whispers_logs/query" {
			t.Errorf("query path = %s", r.URL.Path)
		}
		if key := r.Header.Get("X-Algolia-API-Key"); key != "search-key" {
			t.Errorf("query used key %q, want search-key", key)
		}
		var body struct {
			Params string `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		var err error
		gotParams, err = url.ParseQuery(body.Params)
		if err != nil {
			t.Fatalf("parse params: %v", err)
		}
		fmt.Fprint(w, `{"hits": [
			{"objectID": "1", "title": "Rough week", "summary": "burnt out", "tags": ["burnout"], "timestamp": "2025-07-20T09:00:00Z"},
			{"objectID": "2", "title": "Tired again", "summary": "", "tags": [], "timestamp": "2025-07-21T09:00:00Z"}
		]}`)
	}))

	hits, err := c.Query(context.Background(), "burnout", "user-1")
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}

	if gotParams.Get("query") != "burnout" {
		t.Errorf("query param = %q, want burnout", gotParams.Get("query"))
	}
	if want := `user_id:"user-1"`; gotParams.Get("filters") != want {
		t.Errorf("filters param = %q, want %s", gotParams.Get("filters"), want)
	}
	if len(hits) != 2 || hits[0].ObjectID != "1" || hits[1].ObjectID != "2" {
		t.Errorf("unexpected hits: %+v", hits)
	}
}

func TestQueryWithoutOwnerOmitsFilter(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Params string `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		params, _ := url.ParseQuery(body.Params)
		if params.Has("filters") {
			t.Errorf("expected no filters param, got %q", params.Get("filters"))
		}
		fmt.Fprint(w, `{"hits": []}`)
	}))

	if _, err := c.Query(context.Background(), "hiking", ""); err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
}

func TestQuerySurfacesUpstreamFailure(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Index does not exist"}`, http.StatusNotFound)
	}))

	if _, err := c.Query(context.Background(), "anything", ""); err == nil {
		t.Fatal("expected error for non-2xx query response")
	}
}

func TestSaveObjectsBatch(t *testing.T) {
	var gotActions []string

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/indexes/whispers_logs/batch" {
			t.Errorf("batch path = %s", r.URL.Path)
		}
		var payload struct {
			Requests []struct {
				Action string `json:"action"`
				Body   Record `json:"body"`
			} `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode batch: %v", err)
		}
		for _, req := range payload.Requests {
			gotActions = append(gotActions, req.Action)
		}
		fmt.Fprint(w, `{"taskID": 7}`)
	}))

	err := c.SaveObjects(context.Background(), []Record{
		{Title: "new"},
		{ObjectID: "5", Title: "existing"},
	})
	if err != nil {
		t.Fatalf("SaveObjects returned error: %v", err)
	}

	want := []string{"addObject", "updateObject"}
	if len(gotActions) != 2 || gotActions[0] != want[0] || gotActions[1] != want[1] {
		t.Errorf("batch actions = %v, want %v", gotActions, want)
	}
}
