package subscriber

import (
	"time"
)

// Subscriber is a Telegram user who completed onboarding.
type Subscriber struct {
	ID                   int64
	TelegramID           int64
	FirstName            string
	City                 string
	Country              string
	LeadMinutes          int
	NotificationsEnabled bool
	PermissionGranted    bool // Remembered grant, seeds the permission gate after a restart
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// HasLocation reports whether a city and country have been resolved.
func (s *Subscriber) HasLocation() bool {
	return s.City != "" && s.Country != ""
}
