//go:build integration

package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_AnalysisCompleted(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	ctx := context.Background()
	logger := slog.Default()

	client, err := NewClient(ctx, natsURL, os.Getenv("NATS_TOKEN"), logger)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	received := make(chan AnalysisCompleted, 1)

	err = client.Subscribe(SubjectAnalysisCompleted, func(subject string, data []byte) {
		var evt AnalysisCompleted
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Errorf("unmarshal: %v", err)
			return
		}
		received <- evt
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	// Give subscription time to propagate
	time.Sleep(100 * time.Millisecond)

	err = client.Publish(SubjectAnalysisCompleted, AnalysisCompleted{
		RequestID:     "req-integration",
		IsScam:        true,
		Confidence:    0.92,
		EvidenceLevel: "HIGH",
		Mode:          "shield",
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case evt := <-received:
		if evt.RequestID != "req-integration" || !evt.IsScam {
			t.Errorf("unexpected event %+v", evt)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
