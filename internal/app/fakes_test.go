package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"prayer_notification_bot/internal/clock"
	"prayer_notification_bot/internal/domain/prayer"
	domainReminder "prayer_notification_bot/internal/domain/reminder"
	"prayer_notification_bot/internal/domain/subscriber"
	idb "prayer_notification_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

var errProviderDown = errors.New("provider down")

type fakeProvider struct {
	mu    sync.Mutex
	raw   map[string]map[prayer.Name]string // keyed by city
	err   error
	calls int
}

func (p *fakeProvider) Timings(_ context.Context, city, country string, _ time.Time) (*prayer.Timetable, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, &prayer.ProviderError{City: city, Country: country, Err: p.err}
	}
	return prayer.NewTimetable(city, country, "19 Oct 2026", nil, p.raw[city])
}

func (p *fakeProvider) set(city string, raw map[prayer.Name]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.raw[city] = raw
}

func (p *fakeProvider) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

type recordingSink struct {
	mu      sync.Mutex
	answer  domainReminder.Permission
	prompts int
	titles  []string
	bodies  []string

	// When release is set the prompt signals waiting and blocks until an answer arrives.
	waiting chan struct{}
	release chan domainReminder.Permission
}

func (s *recordingSink) RequestPermission(ctx context.Context) (domainReminder.Permission, error) {
	s.mu.Lock()
	s.prompts++
	answer, release := s.answer, s.release
	s.mu.Unlock()

	if release == nil {
		return answer, nil
	}
	s.waiting <- struct{}{}
	select {
	case p := <-release:
		return p, nil
	case <-ctx.Done():
		return domainReminder.PermissionUnknown, ctx.Err()
	}
}

func (s *recordingSink) Show(_ context.Context, title, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = append(s.titles, title)
	s.bodies = append(s.bodies, body)
	return nil
}

func (s *recordingSink) Titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.titles...)
}

type fixture struct {
	repo     *idb.MemorySubscriberRepository
	provider *fakeProvider
	clock    *clock.Fake
	sinks    map[int64]*recordingSink
	answer   domainReminder.Permission
	waiting  chan struct{}
	release  chan domainReminder.Permission
	svc      *NotificationServiceImpl
}

func cairoTimes() map[prayer.Name]string {
	return map[prayer.Name]string{
		prayer.Fajr:    "05:10",
		prayer.Sunrise: "06:30",
		prayer.Dhuhr:   "12:15",
		prayer.Asr:     "15:45",
		prayer.Maghrib: "18:42",
		prayer.Isha:    "20:05",
	}
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newFixture() *fixture {
	f := &fixture{
		repo:     idb.NewMemorySubscriberRepository(),
		provider: &fakeProvider{raw: map[string]map[prayer.Name]string{"Cairo": cairoTimes()}},
		clock:    clock.NewFake(time.Date(2026, time.October, 19, 18, 0, 0, 0, time.UTC)),
		sinks:    make(map[int64]*recordingSink),
		answer:   domainReminder.PermissionGranted,
	}
	f.svc = NewNotificationServiceImpl(f.repo, f.provider, func(telegramID int64) domainReminder.Sink {
		sink := &recordingSink{answer: f.answer, waiting: f.waiting, release: f.release}
		f.sinks[telegramID] = sink
		return sink
	}, f.clock, time.Second, testLogger())
	return f
}

func (f *fixture) addSubscriber(telegramID int64, enabled, granted bool) *subscriber.Subscriber {
	s := &subscriber.Subscriber{
		TelegramID:           telegramID,
		FirstName:            "Yusuf",
		City:                 "Cairo",
		Country:              "Egypt",
		LeadMinutes:          5,
		NotificationsEnabled: enabled,
		PermissionGranted:    granted,
	}
	if err := f.repo.Create(context.Background(), s); err != nil {
		panic(err)
	}
	return s
}

func (f *fixture) at(hour, minute int) time.Time {
	return time.Date(2026, time.October, 19, hour, minute, 0, 0, time.UTC)
}
