// internal/app/notification_service.go
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"prayer_notification_bot/internal/app/reminder"
	"prayer_notification_bot/internal/clock"
	"prayer_notification_bot/internal/domain/prayer"
	domainReminder "prayer_notification_bot/internal/domain/reminder"
	"prayer_notification_bot/internal/domain/subscriber"

	"github.com/sirupsen/logrus"
)

var ErrProviderUnavailable = fmt.Errorf("prayer times provider unavailable")
var ErrInvalidLeadMinutes = fmt.Errorf("lead minutes must be between %d and %d", MinLeadMinutes, MaxLeadMinutes)
var ErrEnableInterrupted = fmt.Errorf("notifications were turned off while waiting for permission")

const (
	MinLeadMinutes = 1
	MaxLeadMinutes = 120
)

// NotificationService owns one reminder session per subscriber and is the only caller of
// the scheduler's Start and Cancel.
type NotificationService interface {
	EnableNotifications(ctx context.Context, telegramID int64) (*EnableResult, error)
	DisableNotifications(ctx context.Context, telegramID int64) error
	ChangeLocation(ctx context.Context, telegramID int64, city, country string) (*subscriber.Subscriber, error)
	SetLeadMinutes(ctx context.Context, telegramID int64, minutes int) error
	TodayTimes(ctx context.Context, telegramID int64) (*prayer.Timetable, error)
	Schedule(telegramID int64) ([]domainReminder.ScheduleEntry, bool)
	RolloverDay(ctx context.Context) error
	Resume(ctx context.Context) error
	Shutdown()
}

// EnableResult reports the outcome of turning reminders on. PermissionGranted false means
// the schedule is armed but nothing will be shown; Permission tells a denial apart from an
// unanswered prompt.
type EnableResult struct {
	PermissionGranted bool
	Permission        domainReminder.Permission
	Timetable         *prayer.Timetable
	Entries           []domainReminder.ScheduleEntry
}

// SinkFactory returns the notification sink that reaches one subscriber.
type SinkFactory func(telegramID int64) domainReminder.Sink

type session struct {
	// op serialises subscriber updates and rebuilds. It is never held across a permission prompt.
	op sync.Mutex

	mu         sync.Mutex
	generation uint64 // Bumped by every disable
	gate       *reminder.Gate
	sink       domainReminder.Sink
	scheduler  *reminder.Scheduler
	timetable  *prayer.Timetable
}

// NotificationServiceImpl implements the NotificationService interface.
type NotificationServiceImpl struct {
	subscriberRepo subscriber.Repository
	provider       prayer.Provider
	newSink        SinkFactory
	clock          clock.Clock
	promptTimeout  time.Duration
	logger         *logrus.Entry

	mu       sync.Mutex
	sessions map[int64]*session
}

func NewNotificationServiceImpl(
	sr subscriber.Repository,
	provider prayer.Provider,
	newSink SinkFactory,
	clk clock.Clock,
	promptTimeout time.Duration,
	logger *logrus.Entry,
) *NotificationServiceImpl {
	if clk == nil {
		clk = clock.Real{}
	}
	return &NotificationServiceImpl{
		subscriberRepo: sr,
		provider:       provider,
		newSink:        newSink,
		clock:          clk,
		promptTimeout:  promptTimeout,
		logger:         logger,
		sessions:       make(map[int64]*session),
	}
}

// EnableNotifications asks for permission if needed, then fetches today's timetable and
// arms a fresh schedule. A denied permission still arms the schedule.
func (s *NotificationServiceImpl) EnableNotifications(ctx context.Context, telegramID int64) (*EnableResult, error) {
	log := s.logger.WithField("subscriber_telegram_id", telegramID)

	sub, err := s.subscriberRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if !sub.HasLocation() {
		return nil, ErrLocationRequired
	}

	sess := s.sessionFor(sub)
	generation := sess.currentGeneration()

	promptCtx := ctx
	if s.promptTimeout > 0 {
		var cancel context.CancelFunc
		promptCtx, cancel = context.WithTimeout(ctx, s.promptTimeout)
		defer cancel()
	}
	granted := sess.gate.EnsurePermission(promptCtx)
	if !granted {
		log.WithField("permission", sess.gate.State().String()).Info("Notifications enabled without permission")
	}

	sess.op.Lock()
	defer sess.op.Unlock()

	if sess.currentGeneration() != generation {
		log.Info("Notifications disabled during permission prompt, not enabling")
		return nil, ErrEnableInterrupted
	}

	// Reload: the prompt may have taken minutes and a grant may have been stored meanwhile.
	sub, err = s.subscriberRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if !sub.HasLocation() {
		return nil, ErrLocationRequired
	}

	if err := s.rebuild(ctx, sub, sess); err != nil {
		return nil, err
	}

	if !sub.NotificationsEnabled || (granted && !sub.PermissionGranted) {
		sub.NotificationsEnabled = true
		sub.PermissionGranted = sub.PermissionGranted || granted
		if err := s.subscriberRepo.Update(ctx, sub); err != nil {
			sess.cancel()
			return nil, fmt.Errorf("failed to persist notification flag: %w", err)
		}
	}

	sess.mu.Lock()
	result := &EnableResult{
		PermissionGranted: granted,
		Permission:        sess.gate.State(),
		Timetable:         sess.timetable,
		Entries:           sess.scheduler.Entries(),
	}
	sess.mu.Unlock()

	log.WithField("reminders", len(result.Entries)).Info("Notifications enabled")
	return result, nil
}

// DisableNotifications cancels the schedule and any enable still waiting on its prompt.
func (s *NotificationServiceImpl) DisableNotifications(ctx context.Context, telegramID int64) error {
	sub, err := s.subscriberRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return err
	}

	sess := s.sessionFor(sub)
	sess.op.Lock()
	defer sess.op.Unlock()
	sess.disable()

	sub, err = s.subscriberRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return err
	}
	sub.NotificationsEnabled = false
	if err := s.subscriberRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to persist notification flag: %w", err)
	}
	s.logger.WithField("subscriber_telegram_id", telegramID).Info("Notifications disabled")
	return nil
}

// ChangeLocation stores a new city and rebuilds the schedule when reminders are on.
func (s *NotificationServiceImpl) ChangeLocation(ctx context.Context, telegramID int64, city, country string) (*subscriber.Subscriber, error) {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	if city == "" || country == "" {
		return nil, ErrLocationRequired
	}

	sub, sess, err := s.lockedSubscriber(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	defer sess.op.Unlock()

	sub.City = city
	sub.Country = country
	if err := s.subscriberRepo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to update subscriber location: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"subscriber_telegram_id": telegramID,
		"city":                   city,
		"country":                country,
	}).Info("Location changed")

	if sub.NotificationsEnabled {
		if err := s.rebuild(ctx, sub, sess); err != nil {
			return sub, err
		}
	}
	return sub, nil
}

func (s *NotificationServiceImpl) SetLeadMinutes(ctx context.Context, telegramID int64, minutes int) error {
	if minutes < MinLeadMinutes || minutes > MaxLeadMinutes {
		return ErrInvalidLeadMinutes
	}

	sub, sess, err := s.lockedSubscriber(ctx, telegramID)
	if err != nil {
		return err
	}
	defer sess.op.Unlock()

	sub.LeadMinutes = minutes
	if err := s.subscriberRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to update lead minutes: %w", err)
	}

	if sub.NotificationsEnabled {
		return s.rebuild(ctx, sub, sess)
	}
	return nil
}

// TodayTimes fetches the subscriber's timetable without touching the schedule.
func (s *NotificationServiceImpl) TodayTimes(ctx context.Context, telegramID int64) (*prayer.Timetable, error) {
	sub, err := s.subscriberRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if !sub.HasLocation() {
		return nil, ErrLocationRequired
	}

	tt, err := s.provider.Timings(ctx, sub.City, sub.Country, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	return tt, nil
}

// Schedule returns the pending reminders of an active session.
func (s *NotificationServiceImpl) Schedule(telegramID int64) ([]domainReminder.ScheduleEntry, bool) {
	sess := s.existingSession(telegramID)
	if sess == nil {
		return nil, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.scheduler == nil || !sess.scheduler.Active() {
		return nil, false
	}
	return sess.scheduler.Entries(), true
}

// RolloverDay rebuilds every enabled subscriber's schedule from a fresh timetable.
// A failed rebuild leaves that subscriber without a schedule until the next rollover.
func (s *NotificationServiceImpl) RolloverDay(ctx context.Context) error {
	return s.rebuildEnabled(ctx, "Day rollover")
}

// Resume restores schedules for subscribers that had reminders on before a restart.
func (s *NotificationServiceImpl) Resume(ctx context.Context) error {
	return s.rebuildEnabled(ctx, "Resume")
}

func (s *NotificationServiceImpl) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[int64]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.cancel()
	}
	s.logger.WithField("sessions", len(sessions)).Info("All reminder sessions cancelled")
}

func (s *NotificationServiceImpl) rebuildEnabled(ctx context.Context, reason string) error {
	log := s.logger.WithField("reason", reason)

	subscribers, err := s.subscriberRepo.ListNotificationsEnabled(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list subscribers with notifications enabled")
		return fmt.Errorf("failed to list subscribers: %w", err)
	}

	var failed int
	for _, listed := range subscribers {
		if err := s.rebuildIfEnabled(ctx, listed.TelegramID); err != nil {
			failed++
			log.WithError(err).WithField("subscriber_telegram_id", listed.TelegramID).Warn("Failed to rebuild reminder schedule")
		}
	}
	log.WithFields(logrus.Fields{
		"subscribers": len(subscribers),
		"failed":      failed,
	}).Info("Reminder schedules rebuilt")
	return nil
}

// rebuildIfEnabled rebuilds from a fresh read so a disable racing the listing wins.
func (s *NotificationServiceImpl) rebuildIfEnabled(ctx context.Context, telegramID int64) error {
	sub, sess, err := s.lockedSubscriber(ctx, telegramID)
	if err != nil {
		return err
	}
	defer sess.op.Unlock()

	if !sub.NotificationsEnabled || !sub.HasLocation() {
		return nil
	}
	return s.rebuild(ctx, sub, sess)
}

// lockedSubscriber returns the subscriber read under its session's op lock, which the
// caller must release.
func (s *NotificationServiceImpl) lockedSubscriber(ctx context.Context, telegramID int64) (*subscriber.Subscriber, *session, error) {
	sub, err := s.subscriberRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, nil, err
	}
	sess := s.sessionFor(sub)
	sess.op.Lock()

	sub, err = s.subscriberRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		sess.op.Unlock()
		return nil, nil, err
	}
	return sub, sess, nil
}

// rebuild replaces the session's scheduler. The caller holds sess.op. On provider failure the session is left
// with no schedule.
func (s *NotificationServiceImpl) rebuild(ctx context.Context, sub *subscriber.Subscriber, sess *session) error {
	log := s.logger.WithField("subscriber_telegram_id", sub.TelegramID)

	tt, fetchErr := s.provider.Timings(ctx, sub.City, sub.Country, time.Time{})

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.scheduler != nil {
		sess.scheduler.Cancel()
	}
	sess.scheduler = nil
	sess.timetable = nil

	if fetchErr != nil {
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, fetchErr)
	}

	sched := reminder.NewScheduler(s.clock, sess.sink, sess.gate, reminder.Options{LeadMinutes: sub.LeadMinutes}, log)
	if err := sched.Start(tt.Times, tt.Location); err != nil {
		return fmt.Errorf("failed to start reminder schedule: %w", err)
	}
	sess.scheduler = sched
	sess.timetable = tt
	return nil
}

func (s *NotificationServiceImpl) existingSession(telegramID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[telegramID]
}

func (s *NotificationServiceImpl) sessionFor(sub *subscriber.Subscriber) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sub.TelegramID]; ok {
		return sess
	}

	initial := domainReminder.PermissionUnknown
	if sub.PermissionGranted {
		initial = domainReminder.PermissionGranted
	}
	telegramID := sub.TelegramID
	log := s.logger.WithField("subscriber_telegram_id", telegramID)
	sink := s.newSink(telegramID)

	sess := &session{
		sink: sink,
		gate: reminder.NewGate(sink, initial, func(p domainReminder.Permission) {
			s.rememberGrant(telegramID, p)
		}, log),
	}
	s.sessions[telegramID] = sess
	return sess
}

// rememberGrant persists a granted permission so it survives restarts. Denials are not stored.
func (s *NotificationServiceImpl) rememberGrant(telegramID int64, p domainReminder.Permission) {
	if p != domainReminder.PermissionGranted {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := s.logger.WithField("subscriber_telegram_id", telegramID)
	if sess := s.existingSession(telegramID); sess != nil {
		sess.op.Lock()
		defer sess.op.Unlock()
	}
	sub, err := s.subscriberRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		log.WithError(err).Warn("Failed to load subscriber to remember permission")
		return
	}
	sub.PermissionGranted = true
	if err := s.subscriberRepo.Update(ctx, sub); err != nil {
		log.WithError(err).Warn("Failed to remember permission")
	}
}

func (sess *session) cancel() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.scheduler != nil {
		sess.scheduler.Cancel()
	}
	sess.scheduler = nil
	sess.timetable = nil
}

// disable cancels the schedule and invalidates enables started before it.
func (sess *session) disable() {
	sess.mu.Lock()
	sess.generation++
	sess.mu.Unlock()
	sess.cancel()
}

func (sess *session) currentGeneration() uint64 {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.generation
}
