package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/surveyportal/pkg/models"
)

// Notification announces that a job reached a terminal status.
type Notification struct {
	PartnerID uuid.UUID           `json:"partner_id"`
	UploadID  string              `json:"upload_id"`
	FileName  string              `json:"file_name"`
	Status    models.UploadStatus `json:"status"`
	Message   string              `json:"message,omitempty"`
}

func newNotification(job models.UploadJob) Notification {
	return Notification{
		PartnerID: job.PartnerID,
		UploadID:  job.UploadID,
		FileName:  job.FileName,
		Status:    job.Status,
		Message:   job.Message,
	}
}

// Text is the user-facing line for the notification.
func (n Notification) Text() string {
	switch n.Status {
	case models.UploadStatusCompleted:
		return fmt.Sprintf("Analysis of %s completed", n.FileName)
	case models.UploadStatusFailed:
		if n.Message != "" {
			return fmt.Sprintf("Analysis of %s failed: %s", n.FileName, n.Message)
		}
		return fmt.Sprintf("Analysis of %s failed", n.FileName)
	}
	return fmt.Sprintf("%s is %s", n.FileName, n.Status)
}

// Notifier delivers notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info(n.Text(),
		"upload_id", n.UploadID,
		"file_name", n.FileName,
		"status", n.Status,
	)
	return nil
}

// Publisher is a fire-and-forget message channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// PublishNotifier sends notifications as JSON to a pub/sub channel. Messages are
// transient; nobody listening means nobody is told.
type PublishNotifier struct {
	pub     Publisher
	channel string
}

func NewPublishNotifier(pub Publisher, channel string) *PublishNotifier {
	return &PublishNotifier{pub: pub, channel: channel}
}

func (p *PublishNotifier) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(struct {
		Notification
		Text string `json:"text"`
	}{n, n.Text()})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	if err := p.pub.Publish(ctx, p.channel, payload); err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}
	return nil
}

// MultiNotifier fans a notification out to every notifier.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
