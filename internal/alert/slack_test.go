package alert

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/blocksafe/internal/classifier"
	"github.com/MikeSquared-Agency/blocksafe/internal/decision"
	"github.com/MikeSquared-Agency/blocksafe/internal/entities"
	"github.com/MikeSquared-Agency/blocksafe/internal/honeypot"
	"github.com/MikeSquared-Agency/blocksafe/internal/report"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecord() *report.Record {
	msg := "URGENT! Pay to scam@upi now. Call 9876543210."
	found := entities.Extract(msg)
	return report.Build(report.Input{
		RequestID: "req-1",
		SessionID: "sess-1",
		Message:   msg,
		Mode:      decision.ModeHoneypot,
		Verdict: classifier.Verdict{
			IsScam:     true,
			Confidence: 0.95,
			ScamType:   classifier.ScamTypeUPIFraud,
			Entities:   found,
		},
		Engagement: &honeypot.Result{
			Engaged:        true,
			TurnsCompleted: 2,
			Reason:         honeypot.ReasonNoNewEntities,
			Entities:       found,
		},
	})
}

func TestFormatAlert(t *testing.T) {
	msg := formatAlert(testRecord())

	checks := []string{
		"HIGH evidence upi fraud",
		"confidence 0.95",
		"honeypot mode",
		"***@upi",
		"******3210",
		"UPI IDs: scam@upi",
		"Phone numbers: 9876543210",
		"2 turn(s), ended with `no_new_entities_in_last_turns`",
	}
	for _, check := range checks {
		if !strings.Contains(msg, check) {
			t.Errorf("expected message to contain %q\n%s", check, msg)
		}
	}
	if strings.Contains(msg, "> URGENT! Pay to scam@upi") {
		t.Error("original message should be masked")
	}
}

func TestFormatAlert_NoIdentifiers(t *testing.T) {
	rec := report.Build(report.Input{
		Message: "Your parcel is held",
		Verdict: classifier.Verdict{IsScam: true, Confidence: 0.9},
	})
	msg := formatAlert(rec)
	if strings.Contains(msg, "Identifiers") {
		t.Errorf("unexpected identifiers section:\n%s", msg)
	}
	if !strings.Contains(msg, "HIGH evidence scam") {
		t.Errorf("expected generic scam label:\n%s", msg)
	}
}

func TestAlert_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer xoxb-test" {
			t.Errorf("expected Bearer xoxb-test, got %q", r.Header.Get("Authorization"))
		}

		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		json.Unmarshal(body, &payload)

		if payload["channel"] != "C123" {
			t.Errorf("expected channel C123, got %v", payload["channel"])
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"ts": "1234567890.123456",
		})
	}))
	defer server.Close()

	p := NewSlackPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	if err := p.Alert(context.Background(), testRecord()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAlert_SlackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":    false,
			"error": "channel_not_found",
		})
	}))
	defer server.Close()

	p := NewSlackPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	if err := p.Alert(context.Background(), testRecord()); err == nil {
		t.Fatal("expected error for slack error response")
	}
}
