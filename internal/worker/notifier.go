package worker

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/Priya8975/broadcast-review/internal/domain"
)

// ReportReadyEvent is the event type carried by every notification.
const ReportReadyEvent = "report.ready"

// ReportReady announces that a country report has been stored.
type ReportReady struct {
	RunID   string         `json:"run_id"`
	Country string         `json:"country"`
	Window  domain.Window  `json:"window"`
	Outcome domain.Outcome `json:"outcome"`
	Cohorts int            `json:"cohorts"`
	Summary domain.Summary `json:"summary"`
}

// Notifier delivers report notifications downstream.
type Notifier interface {
	Notify(ctx context.Context, n ReportReady) error
}

// Notifiers delivers to each notifier in turn and joins their errors.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, n ReportReady) error {
	var errs []error
	for _, notifier := range ns {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WebhookNotifier POSTs notifications signed with HMAC-SHA256 of the body.
type WebhookNotifier struct {
	url        string
	secret     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewWebhookNotifier(url, secret string, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		secret: secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (w *WebhookNotifier) Notify(ctx context.Context, n ReportReady) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", computeHMAC(payload, w.secret))
	req.Header.Set("X-Webhook-Event", ReportReadyEvent)
	req.Header.Set("X-Webhook-ID", uuid.NewString())
	req.Header.Set("X-Webhook-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))

	start := time.Now()
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, body)
	}

	w.logger.Info("report webhook delivered",
		"run_id", n.RunID,
		"country", n.Country,
		"status_code", resp.StatusCode,
		"response_time_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// computeHMAC returns the hex HMAC-SHA256 of payload.
func computeHMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes notifications keyed by country.
type KafkaNotifier struct {
	writer messageWriter
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n ReportReady) error {
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(n.Country),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ReportReadyEvent)},
			{Key: "run_id", Value: []byte(n.RunID)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing %s notification: %w", n.Country, err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
