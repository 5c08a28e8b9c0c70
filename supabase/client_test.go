package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "service-key")
}

func TestInsertSession(t *testing.T) {
	var gotPath string
	var gotSession Session

	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != "POST" {
			t.Errorf("insert method = %s, want POST", r.Method)
		}
		if key := r.Header.Get("apikey"); key != "service-key" {
			t.Errorf("apikey header = %q, want service-key", key)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer service-key" {
			t.Errorf("authorization header = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotSession); err != nil {
			t.Fatalf("decode session: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	})

	session := Session{
		SessionID: "abc-123",
		Date:      "2025-07-24",
		CreatedAt: "2025-07-24T10:22:00Z",
	}
	if err := c.InsertSession(context.Background(), session); err != nil {
		t.Fatalf("InsertSession returned error: %v", err)
	}

	if gotPath != "/rest/v1/sessions" {
		t.Errorf("insert path = %s, want /rest/v1/sessions", gotPath)
	}
	if gotSession != session {
		t.Errorf("inserted session = %+v, want %+v", gotSession, session)
	}
}

func TestSelectAppliesEqualityFilters(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("email"); got != "eq.a@b.c" {
			t.Errorf("email filter = %q, want eq.a@b.c", got)
		}
		fmt.Fprint(w, `[{"name": "Ada", "email": "a@b.c"}]`)
	})

	var rows []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	err := c.Select(context.Background(), "users", map[string]string{"email": "a@b.c"}, &rows)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Ada" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestCount(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"session_id": "1"}, {"session_id": "2"}, {"session_id": "3"}]`)
	})

	n, err := c.Count(context.Background(), "sessions", map[string]string{"user_id": "u1"})
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestInsertSurfacesUpstreamFailure(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "permission denied"}`, http.StatusForbidden)
	})

	if err := c.Insert(context.Background(), "sessions", Session{}); err == nil {
		t.Fatal("expected error for non-2xx insert response")
	}
}

func TestGetUserSendsBearerToken(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("path = %s, want /auth/v1/user", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer user-token" {
			t.Errorf("authorization = %q, want the user token", auth)
		}
		fmt.Fprint(w, `{"id": "u-9", "email": "a@b.c", "created_at": "2025-01-01T00:00:00Z"}`)
	})

	user, err := c.GetUser(context.Background(), "user-token")
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if user.ID != "u-9" || user.Email != "a@b.c" {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestGetUserRejectsEmptyUser(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	if _, err := c.GetUser(context.Background(), "token"); err == nil {
		t.Fatal("expected error for a response without a user id")
	}
}

func TestVerifyOTP(t *testing.T) {
	var gotBody map[string]string

	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/verify" {
			t.Errorf("path = %s, want /auth/v1/verify", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"access_token": "sess-token", "token_type": "bearer",
			"user": {"id": "u-1", "email": "a@b.c"}}`)
	})

	session, err := c.VerifyOTP(context.Background(), "a@b.c", "123456")
	if err != nil {
		t.Fatalf("VerifyOTP returned error: %v", err)
	}

	if gotBody["type"] != "magiclink" || gotBody["email"] != "a@b.c" || gotBody["token"] != "123456" {
		t.Errorf("unexpected verify body: %v", gotBody)
	}
	if session.AccessToken != "sess-token" || session.User.ID != "u-1" {
		t.Errorf("unexpected session: %+v", session)
	}
}

func TestSendMagicLinkEmbedsRedirect(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/otp" {
			t.Errorf("path = %s, want /auth/v1/otp", r.URL.Path)
		}
		if got := r.URL.Query().Get("redirect_to"); got != "http://localhost:8080/auth/verify" {
			t.Errorf("redirect_to = %q", got)
		}
		w.WriteHeader(http.StatusOK)
	})

	err := c.SendMagicLink(context.Background(), "a@b.c", "http://localhost:8080/auth/verify")
	if err != nil {
		t.Fatalf("SendMagicLink returned error: %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	var gotPath string
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != "DELETE" {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := c.DeleteUser(context.Background(), "u-1"); err != nil {
		t.Fatalf("DeleteUser returned error: %v", err)
	}
	if gotPath != "/auth/v1/admin/users/u-1" {
		t.Errorf("path = %s, want /auth/v1/admin/users/u-1", gotPath)
	}
}
