package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	domainReminder "prayer_notification_bot/internal/domain/reminder"

	"github.com/sirupsen/logrus"
)

// Publisher sends a message body under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// ReminderEvent is the JSON body published for every reminder shown.
type ReminderEvent struct {
	TelegramID int64     `json:"telegram_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	ShownAt    time.Time `json:"shown_at"`
}

// PublishingSink forwards to another sink and publishes each successful Show.
// Publish failures are logged and never surface to the scheduler.
type PublishingSink struct {
	next       domainReminder.Sink
	publisher  Publisher
	telegramID int64
	logger     *logrus.Entry
	now        func() time.Time
}

func NewPublishingSink(next domainReminder.Sink, publisher Publisher, telegramID int64, logger *logrus.Entry) *PublishingSink {
	return &PublishingSink{
		next:       next,
		publisher:  publisher,
		telegramID: telegramID,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *PublishingSink) RequestPermission(ctx context.Context) (domainReminder.Permission, error) {
	return s.next.RequestPermission(ctx)
}

func (s *PublishingSink) Show(ctx context.Context, title, body string) error {
	if err := s.next.Show(ctx, title, body); err != nil {
		return err
	}

	payload, err := json.Marshal(ReminderEvent{
		TelegramID: s.telegramID,
		Title:      title,
		Body:       body,
		ShownAt:    s.now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to encode reminder event")
		return nil
	}
	if err := s.publisher.Publish(ctx, RoutingKey(s.telegramID), payload); err != nil {
		s.logger.WithError(err).WithField("subscriber_telegram_id", s.telegramID).Warn("Failed to publish reminder event")
	}
	return nil
}

// RoutingKey is the per-subscriber topic key, e.g. "reminder.42".
func RoutingKey(telegramID int64) string {
	return "reminder." + strconv.FormatInt(telegramID, 10)
}
