package vald

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ratewalk/valuation-core/pkg/logger"
	"github.com/ratewalk/valuation-core/pkg/models"
	"github.com/ratewalk/valuation-core/pkg/utils"
)

// NotificationPayload is the JSON body sent to a run's callback URL.
// It carries the run state and summary statistics, not the full value
// batch — callers fetch the result endpoint for that.
type NotificationPayload struct {
	RunID           string             `json:"run_id"`
	Status          models.RunStatus   `json:"status"`
	CreatedAtUnixMs int64              `json:"created_at_unix_ms"`
	StartedAtUnixMs int64              `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64              `json:"ended_at_unix_ms,omitempty"`
	Error           string             `json:"error,omitempty"`
	Stats           *models.BatchStats `json:"stats,omitempty"`
	Timestamp       int64              `json:"timestamp"`
}

// Notifier delivers completion callbacks with retries.
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	backoff    utils.BackoffStrategy
}

// NewNotifier creates a notifier with a 10s request timeout and
// exponential retry backoff.
func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 3,
		backoff:    utils.NewExponentialBackoff(time.Second, 30*time.Second, 2.0, true),
	}
}

// Notify sends a notification to the callback URL asynchronously.
// It returns immediately and performs delivery in a goroutine.
func (n *Notifier) Notify(callbackURL string, rec *RunRecord) {
	if callbackURL == "" {
		return
	}

	payload := &NotificationPayload{
		RunID:           rec.Run.ID,
		Status:          rec.Run.Status,
		CreatedAtUnixMs: rec.Run.CreatedAtUnixMs,
		StartedAtUnixMs: rec.Run.StartedAtUnixMs,
		EndedAtUnixMs:   rec.Run.EndedAtUnixMs,
		Error:           rec.Run.Error,
		Timestamp:       nowUnixMs(),
	}
	if rec.Result != nil {
		payload.Stats = rec.Result.Stats
	}

	go n.deliver(callbackURL, payload)
}

func (n *Notifier) deliver(callbackURL string, payload *NotificationPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to encode notification", "run_id", payload.RunID, "error", err)
		return
	}

	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(n.backoff.NextDelay(attempt - 1))
		}

		err := n.post(callbackURL, body)
		if err == nil {
			logger.Debug("notification delivered", "run_id", payload.RunID, "url", callbackURL)
			return
		}
		logger.Warn("notification attempt failed",
			"run_id", payload.RunID, "url", callbackURL, "attempt", attempt+1, "error", err)
	}

	logger.Error("notification abandoned after retries",
		"run_id", payload.RunID, "url", callbackURL, "retries", n.maxRetries)
}

func (n *Notifier) post(callbackURL string, body []byte) error {
	resp, err := n.httpClient.Post(callbackURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}
