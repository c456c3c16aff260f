package app

import (
	"context"
	"fmt"

	"prayer_notification_bot/internal/domain/subscriber"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")

type AdminService struct {
	subscriberRepo  subscriber.Repository
	adminTelegramID int64
}

func NewAdminService(sr subscriber.Repository, adminID int64) *AdminService {
	return &AdminService{
		subscriberRepo:  sr,
		adminTelegramID: adminID,
	}
}

// ListSubscribers returns every subscriber, or only those with notifications enabled.
func (s *AdminService) ListSubscribers(ctx context.Context, performingAdminID int64, onlyEnabled bool) ([]*subscriber.Subscriber, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}

	var (
		subscribers []*subscriber.Subscriber
		err         error
	)
	if onlyEnabled {
		subscribers, err = s.subscriberRepo.ListNotificationsEnabled(ctx)
	} else {
		subscribers, err = s.subscriberRepo.ListAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	return subscribers, nil
}
