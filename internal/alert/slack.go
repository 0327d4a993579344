// Package alert notifies an analyst channel about high-evidence scams.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/blocksafe/internal/entities"
	"github.com/MikeSquared-Agency/blocksafe/internal/report"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// SlackPoster posts alerts with chat.postMessage.
type SlackPoster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewSlackPoster(token, channel string, logger *slog.Logger) *SlackPoster {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackPoster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// Alert posts a summary of rec to the configured channel.
func (p *SlackPoster) Alert(ctx context.Context, rec *report.Record) error {
	text := formatAlert(rec)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": fmt.Sprintf("request `%s` | session `%s`", rec.RequestID, rec.SessionID),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return fmt.Errorf("slack error: %s", slackResp.Error)
	}

	p.logger.Info("posted scam alert to slack", "ts", slackResp.TS, "request_id", rec.RequestID)
	return nil
}

func formatAlert(rec *report.Record) string {
	var sb strings.Builder

	kind := "scam"
	if t := rec.ScamType.String(); t != "" {
		kind = strings.ReplaceAll(t, "_", " ")
	}
	fmt.Fprintf(&sb, ":rotating_light: *%s evidence %s* (confidence %.2f, %s mode)\n",
		rec.EvidenceLevel, kind, rec.Confidence, rec.Mode)
	fmt.Fprintf(&sb, "> %s\n\n", entities.Mask(rec.OriginalMessage))
	sb.WriteString(rec.AgentSummary)
	sb.WriteString("\n")

	lines := []struct {
		label  string
		values []string
	}{
		{"UPI IDs", rec.Entities.PaymentHandles},
		{"Bank accounts", rec.Entities.BankAccounts},
		{"URLs", rec.Entities.URLs},
		{"Phone numbers", rec.Entities.PhoneNumbers},
	}
	wrote := false
	for _, l := range lines {
		if len(l.values) == 0 {
			continue
		}
		if !wrote {
			sb.WriteString("\n*Identifiers:*\n")
			wrote = true
		}
		fmt.Fprintf(&sb, "• %s: %s\n", l.label, strings.Join(l.values, ", "))
	}

	if h := rec.Honeypot; h != nil && h.Engaged {
		fmt.Fprintf(&sb, "\n*Honeypot:* %d turn(s), ended with `%s`\n", h.TurnsCompleted, h.Reason)
	}

	return sb.String()
}
