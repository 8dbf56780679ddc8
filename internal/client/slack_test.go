package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ioc-radar/backend/internal/config"
	"github.com/ioc-radar/backend/internal/model"
)

func TestSeverityColor(t *testing.T) {
	tests := []struct {
		name string
		cvss float64
		want string
	}{
		{name: "critical", cvss: 9.8, want: "#dc2626"},
		{name: "high", cvss: 7.0, want: "#ea580c"},
		{name: "medium", cvss: 4.0, want: "#d97706"},
		{name: "low", cvss: 3.9, want: "#65a30d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := severityColor(model.SeverityOf(tt.cvss)); got != tt.want {
				t.Fatalf("severityColor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSendRelevantAlertThreadsByAlert(t *testing.T) {
	var (
		mu       sync.Mutex
		received []SlackMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer xoxb-test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		var msg SlackMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decode: %v", err)
		}
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(SlackResponse{OK: true, TS: "1700000000.0001"})
	}))
	defer srv.Close()

	c := NewSlackClient(config.SlackConfig{BotToken: "xoxb-test", ChannelID: "C123"}).WithAPIURL(srv.URL)
	scored := model.ScoredAlert{
		Alert:           model.Alert{ID: "a-1", Summary: "Citrix RCE", CVSS: 9.8, Published: time.Now()},
		RelevanceScore:  13,
		MatchedKeywords: []model.MatchedKeyword{{Category: "server", Word: "citrix"}},
	}

	if err := c.SendRelevantAlert(context.Background(), model.ClientProfile{CompanyName: "Acme"}, scored); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := c.SendRelevantAlert(context.Background(), model.ClientProfile{CompanyName: "Globex"}, scored); err != nil {
		t.Fatalf("second send: %v", err)
	}

	if len(received) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(received))
	}
	if received[0].ThreadTS != "" || received[0].Channel != "C123" {
		t.Fatalf("unexpected first message: %+v", received[0])
	}
	if received[1].ThreadTS != "1700000000.0001" {
		t.Fatalf("expected threaded reply, got %+v", received[1])
	}
}

func TestSendRelevantAlertNotConfigured(t *testing.T) {
	c := NewSlackClient(config.SlackConfig{})
	if c.IsConfigured() {
		t.Fatalf("expected unconfigured client")
	}
	if err := c.SendRelevantAlert(context.Background(), model.ClientProfile{}, model.ScoredAlert{}); err == nil {
		t.Fatalf("expected error when not configured")
	}
}

func TestSendSlackAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(SlackResponse{OK: false, Error: "channel_not_found"})
	}))
	defer srv.Close()

	c := NewSlackClient(config.SlackConfig{BotToken: "x", ChannelID: "C"}).WithAPIURL(srv.URL)
	err := c.SendRelevantAlert(context.Background(), model.ClientProfile{}, model.ScoredAlert{Alert: model.Alert{ID: "a"}})
	if err == nil {
		t.Fatalf("expected slack API error")
	}
	if _, ok := c.GetThreadTS("a"); ok {
		t.Fatalf("thread must not be stored on failure")
	}
}
