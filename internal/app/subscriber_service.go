package app

import (
	"context"
	"fmt"
	"strings"

	"prayer_notification_bot/internal/domain/subscriber"
	idb "prayer_notification_bot/internal/infra/database"
)

var ErrSubscriberAlreadyExists = fmt.Errorf("subscriber with this Telegram ID already exists")
var ErrLocationRequired = fmt.Errorf("city and country are required")

type SubscriberService struct {
	subscriberRepo     subscriber.Repository
	defaultLeadMinutes int
}

func NewSubscriberService(sr subscriber.Repository, defaultLeadMinutes int) *SubscriberService {
	return &SubscriberService{
		subscriberRepo:     sr,
		defaultLeadMinutes: defaultLeadMinutes,
	}
}

// Register onboards a Telegram user with a location. Notifications start off and are
// switched on by EnableNotifications once a schedule is armed.
func (s *SubscriberService) Register(ctx context.Context, telegramID int64, firstName, city, country string) (*subscriber.Subscriber, error) {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	if city == "" || country == "" {
		return nil, ErrLocationRequired
	}

	_, err := s.subscriberRepo.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return nil, ErrSubscriberAlreadyExists
	}
	if err != idb.ErrSubscriberNotFound {
		return nil, fmt.Errorf("failed to check existing subscriber: %w", err)
	}

	newSubscriber := &subscriber.Subscriber{
		TelegramID:           telegramID,
		FirstName:            firstName,
		City:                 city,
		Country:              country,
		LeadMinutes:          s.defaultLeadMinutes,
		NotificationsEnabled: false,
	}
	if err := s.subscriberRepo.Create(ctx, newSubscriber); err != nil {
		if err == idb.ErrDuplicateTelegramID {
			return nil, ErrSubscriberAlreadyExists
		}
		return nil, fmt.Errorf("failed to create subscriber in repository: %w", err)
	}
	return newSubscriber, nil
}

// Get returns the subscriber or idb.ErrSubscriberNotFound.
func (s *SubscriberService) Get(ctx context.Context, telegramID int64) (*subscriber.Subscriber, error) {
	return s.subscriberRepo.GetByTelegramID(ctx, telegramID)
}
