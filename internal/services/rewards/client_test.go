package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"quizsync/internal/services"
	"quizsync/internal/testsupport"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Rewards.Enabled = true
	cfg.Rewards.BaseURL = serverURL
	cfg.Rewards.APIKey = "rewards-key"
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client == nil {
		t.Fatal("expected enabled client")
	}
	return client
}

func TestNewDisabledReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client != nil {
		t.Fatal("expected nil client when sink disabled")
	}
}

func TestEnsurePlayerFindsExisting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			t.Error("existing player should not be recreated")
		}
		if got := r.Header.Get("X-API-Key"); got != "rewards-key" {
			t.Errorf("api key header = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"players": []map[string]string{
				{"id": "player-1", "email": "jane@x.com", "display_name": "Jane Doe"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	player, err := client.EnsurePlayer(context.Background(), "jane@x.com", "Jane Doe")
	if err != nil {
		t.Fatalf("ensure player: %v", err)
	}
	if player.ID != "player-1" {
		t.Fatalf("player id = %q", player.ID)
	}
}

func TestEnsurePlayerCreatesAfterLookup404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			http.Error(w, "no such player", http.StatusNotFound)
		case http.MethodPost:
			var body Player
			json.NewDecoder(r.Body).Decode(&body)
			body.ID = "player-3"
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(body)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	player, err := client.EnsurePlayer(context.Background(), "ann@x.com", "Ann Lee")
	if err != nil {
		t.Fatalf("ensure player: %v", err)
	}
	if player.ID != "player-3" {
		t.Fatalf("unexpected player: %+v", player)
	}
}

func TestFindPlayerServerErrorIsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FindPlayer(context.Background(), "ann@x.com")
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestEnsurePlayerCreatesWhenMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{"players": []any{}})
		case http.MethodPost:
			var body Player
			json.NewDecoder(r.Body).Decode(&body)
			body.ID = "player-2"
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(body)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	player, err := client.EnsurePlayer(context.Background(), "ann@x.com", "Ann Lee")
	if err != nil {
		t.Fatalf("ensure player: %v", err)
	}
	if player.ID != "player-2" || player.Email != "ann@x.com" {
		t.Fatalf("unexpected player: %+v", player)
	}
}
