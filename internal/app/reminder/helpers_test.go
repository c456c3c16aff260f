package reminder

import (
	"context"
	"io"
	"sync"
	"time"

	"prayer_notification_bot/internal/domain/prayer"
	domain "prayer_notification_bot/internal/domain/reminder"

	"github.com/sirupsen/logrus"
)

type shown struct {
	Title string
	Body  string
	At    time.Time
}

type fakeSink struct {
	mu      sync.Mutex
	now     func() time.Time
	answer  domain.Permission
	err     error
	prompts int
	shows   []shown
	release chan struct{}
}

func (s *fakeSink) RequestPermission(ctx context.Context) (domain.Permission, error) {
	s.mu.Lock()
	s.prompts++
	release := s.release
	s.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return domain.PermissionUnknown, ctx.Err()
		}
	}
	return s.answer, s.err
}

func (s *fakeSink) Show(_ context.Context, title, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var at time.Time
	if s.now != nil {
		at = s.now()
	}
	s.shows = append(s.shows, shown{Title: title, Body: body, At: at})
	return nil
}

func (s *fakeSink) Shown() []shown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shown(nil), s.shows...)
}

func (s *fakeSink) Prompts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompts
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func at(hour, minute int) time.Time {
	return time.Date(2026, time.October, 19, hour, minute, 0, 0, time.UTC)
}

func tomorrow(hour, minute int) time.Time {
	return at(hour, minute).AddDate(0, 0, 1)
}

func hm(name prayer.Name, hour, minute int) prayer.Time {
	return prayer.Time{Name: name, Hour: hour, Minute: minute}
}

func scenarioTimes() map[prayer.Name]prayer.Time {
	return map[prayer.Name]prayer.Time{
		prayer.Fajr:    hm(prayer.Fajr, 5, 10),
		prayer.Sunrise: hm(prayer.Sunrise, 6, 30),
		prayer.Dhuhr:   hm(prayer.Dhuhr, 12, 15),
		prayer.Asr:     hm(prayer.Asr, 15, 45),
		prayer.Maghrib: hm(prayer.Maghrib, 18, 42),
		prayer.Isha:    hm(prayer.Isha, 20, 5),
	}
}
