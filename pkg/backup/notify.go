package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// notifier delivers backup outcomes to a webhook. Delivery is
// best-effort: failures are logged, never propagated.
type notifier struct {
	client *http.Client
}

func newNotifier() *notifier {
	return &notifier{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type notifyEvent struct {
	Event    string `json:"event"`
	Kind     string `json:"kind,omitempty"`
	Status   string `json:"status"`
	Location string `json:"location,omitempty"`
	Error    string `json:"error,omitempty"`
	At       int64  `json:"at"`
}

func (n *notifier) send(ctx context.Context, url string, ev notifyEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		slog.Error("webhook payload marshal failed", slog.Any("error", err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		slog.Error("webhook request build failed", slog.Any("error", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		slog.Warn("webhook delivery failed",
			slog.String("event", ev.Event),
			slog.Any("error", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		slog.Warn("webhook rejected",
			slog.String("event", ev.Event),
			slog.String("status", resp.Status))
	}
}
