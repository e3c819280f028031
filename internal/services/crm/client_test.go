package crm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quizsync/internal/services"
	"quizsync/internal/testsupport"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.CRM.BaseURL = serverURL
	client, err := New(cfg, services.StaticToken("crm-token"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestSearchContact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Zoho-oauthtoken crm-token" {
			t.Errorf("authorization header = %q", got)
		}
		if got := r.URL.Query().Get("email"); got != "jane@x.com" {
			t.Errorf("email query = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"id": "contact-1"}},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	contact, err := client.SearchContact(context.Background(), "jane@x.com")
	if err != nil {
		t.Fatalf("search contact: %v", err)
	}
	if contact.ID != "contact-1" {
		t.Fatalf("contact id = %q", contact.ID)
	}
}

func TestSearchContactNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.SearchContact(context.Background(), "ghost@x.com")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestFindSession(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SelectQuery string `json:"select_query"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotQuery = body.SelectQuery
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{
				{"id": "session-9", "Session_Date_Time": "2024-03-01T14:30:00+00:00"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	session, err := client.FindSession(context.Background(), "42")
	if err != nil {
		t.Fatalf("find session: %v", err)
	}
	if session.ID != "session-9" || session.DateTime != "2024-03-01T14:30:00+00:00" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if !strings.Contains(gotQuery, "Vevox_Session_ID = '42'") {
		t.Fatalf("query = %q", gotQuery)
	}
}

func TestFindSessionEscapesQuotes(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SelectQuery string `json:"select_query"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotQuery = body.SelectQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FindSession(context.Background(), "o'brien")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if !strings.Contains(gotQuery, "o''brien") {
		t.Fatalf("quote not escaped: %q", gotQuery)
	}
}

func TestAttemptExists(t *testing.T) {
	exists := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !exists {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"contactId": "contact-1"}},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	found, err := client.AttemptExists(context.Background(), "contact-1", "session-9")
	if err != nil || !found {
		t.Fatalf("expected existing attempt, got found=%v err=%v", found, err)
	}

	exists = false
	found, err = client.AttemptExists(context.Background(), "contact-1", "session-9")
	if err != nil || found {
		t.Fatalf("expected missing attempt, got found=%v err=%v", found, err)
	}
}

func TestAttemptExistsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.AttemptExists(context.Background(), "contact-1", "session-9")
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestCountAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/crm/v2.1/Attempts/actions/count") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]int{"count": 57})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	count, err := client.CountAttempts(context.Background())
	if err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 57 {
		t.Fatalf("count = %d", count)
	}
}

func TestUpsertAttempts(t *testing.T) {
	var payload map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.UpsertAttempts(context.Background(), []Attempt{
		{Name: "58", ContactID: "contact-1", SessionID: "session-9", Score: 7, SessionDate: "2024-03-01T14:30:00+00:00"},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var data []map[string]any
	if err := json.Unmarshal(payload["data"], &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data) != 1 || data[0]["Contact_Name"] != "contact-1" || data[0]["Name"] != "58" {
		t.Fatalf("unexpected data: %v", data)
	}
	var trigger []string
	if err := json.Unmarshal(payload["trigger"], &trigger); err != nil {
		t.Fatalf("decode trigger: %v", err)
	}
	if len(trigger) != 1 || trigger[0] != "workflow" {
		t.Fatalf("trigger = %v", trigger)
	}
	if _, ok := payload["apply_feature_execution"]; !ok {
		t.Fatal("missing apply_feature_execution")
	}
}

func TestUpsertAttemptsRejectsOversizedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	batch := make([]Attempt, MaxBatchSize+1)
	if err := client.UpsertAttempts(context.Background(), batch); err == nil {
		t.Fatal("expected error for oversized batch")
	}
}
