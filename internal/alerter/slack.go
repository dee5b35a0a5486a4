package alerter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// SlackWebhook posts messages to a Slack incoming webhook. The webhook URL
// comes from SLACK_WEBHOOK_URL.
type SlackWebhook struct {
	webhookURL string
	channel    string
	client     *http.Client
}

func NewSlackWebhook(channel string) *SlackWebhook {
	return &SlackWebhook{
		webhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		channel:    channel,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SlackWebhook) Send(title, message string) error {
	if s.webhookURL == "" {
		return fmt.Errorf("SLACK_WEBHOOK_URL not set")
	}

	body, err := json.Marshal(map[string]string{
		"channel": s.channel,
		"text":    fmt.Sprintf("*%s*\n\n%s", title, message),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
