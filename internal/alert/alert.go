package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/LariSevilha/comment-analysis/internal/logger"
)

// Severity grades an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Notifier publishes alerts to an external channel.
type Notifier interface {
	Notify(ctx context.Context, kind string, payload map[string]interface{}, severity Severity) error
}

// LogNotifier writes alerts to the structured log. Default sink when no
// webhook is configured.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, kind string, payload map[string]interface{}, severity Severity) error {
	entry := n.log.WithFields(logger.Fields{
		"alert_kind":     kind,
		"alert_severity": string(severity),
	}).WithFields(logger.Fields(payload))

	switch severity {
	case SeverityCritical:
		entry.Error("Alert raised")
	case SeverityWarning:
		entry.Warn("Alert raised")
	default:
		entry.Info("Alert raised")
	}
	return nil
}

// WebhookNotifier posts alerts as JSON to a configured webhook URL.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	log    *logger.Logger
}

// NewWebhookNotifier creates a webhook-backed notifier.
func NewWebhookNotifier(url string, log *logger.Logger) *WebhookNotifier {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	if log == nil {
		log = logger.Default()
	}
	return &WebhookNotifier{client: client, url: url, log: log}
}

type webhookPayload struct {
	Kind      string                 `json:"kind"`
	Severity  string                 `json:"severity"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, kind string, payload map[string]interface{}, severity Severity) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(webhookPayload{
			Kind:      kind,
			Severity:  string(severity),
			Payload:   payload,
			Timestamp: time.Now().UTC(),
		}).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post alert webhook: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("alert webhook returned HTTP %d", resp.StatusCode())
	}
	return nil
}

// Fanout delivers each alert to every notifier; delivery failures are
// logged and do not stop the remaining sinks.
type Fanout struct {
	notifiers []Notifier
	log       *logger.Logger
}

// NewFanout creates a fanout over the given notifiers.
func NewFanout(log *logger.Logger, notifiers ...Notifier) *Fanout {
	if log == nil {
		log = logger.Default()
	}
	return &Fanout{notifiers: notifiers, log: log}
}

func (f *Fanout) Notify(ctx context.Context, kind string, payload map[string]interface{}, severity Severity) error {
	for _, n := range f.notifiers {
		if err := n.Notify(ctx, kind, payload, severity); err != nil {
			f.log.WithError(err).WithField("alert_kind", kind).Warn("Alert delivery failed")
		}
	}
	return nil
}
