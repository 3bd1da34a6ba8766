package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/killallgit/stream-recorder/pkg/retry"
	"github.com/sirupsen/logrus"
)

// Action tags a notification with the pipeline phase it announces
type Action string

const (
	ActionStart  Action = "Start"
	ActionFinish Action = "Finish"
	// ActionNone sends the payload without an action field
	ActionNone Action = ""
)

// Event names the episode a notification is about
type Event struct {
	Container  string
	FileName   string
	SeriesName string
}

// Payload is the JSON body posted to the webhook. Values are URL-encoded.
type Payload struct {
	Action     string `json:"action,omitempty"`
	Container  string `json:"container"`
	FileName   string `json:"fileName"`
	SeriesName string `json:"seriesName"`
}

// NewPayload builds the encoded body for an event
func NewPayload(action Action, event Event) Payload {
	return Payload{
		Action:     url.QueryEscape(string(action)),
		Container:  url.QueryEscape(event.Container),
		FileName:   url.QueryEscape(event.FileName),
		SeriesName: url.QueryEscape(event.SeriesName),
	}
}

// Notifier posts pipeline events to a webhook
type Notifier struct {
	webhookURL string
	client     *http.Client
	executor   *retry.Executor
	logger     logrus.FieldLogger
}

// NewNotifier creates a notifier. timeout bounds each individual POST.
func NewNotifier(webhookURL string, timeout time.Duration, executor *retry.Executor, logger logrus.FieldLogger) *Notifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		executor:   executor,
		logger:     logger,
	}
}

// Notify posts the event, retrying per the executor's policy. Only a 2xx
// response counts as delivered.
func (n *Notifier) Notify(ctx context.Context, action Action, event Event) error {
	body, err := json.Marshal(NewPayload(action, event))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeNotify, "failed to encode notification")
	}

	err = n.executor.Do(fmt.Sprintf("notify %s", actionLabel(action)), func() error {
		return n.post(ctx, body)
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeNotify, "notification failed").
			WithDetail("action", actionLabel(action))
	}

	n.logger.WithFields(logrus.Fields{
		"action": actionLabel(action),
		"series": event.SeriesName,
		"file":   event.FileName,
	}).Info("Notification sent")
	return nil
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func actionLabel(action Action) string {
	if action == ActionNone {
		return "untagged"
	}
	return string(action)
}
