package reminder

import (
	"context"
	"sort"
	"sync"
	"time"

	"prayer_notification_bot/internal/clock"
	"prayer_notification_bot/internal/domain/prayer"
	domain "prayer_notification_bot/internal/domain/reminder"

	"github.com/sirupsen/logrus"
)

const (
	// A timer that runs this far ahead of its fire instant on the wall clock is re-armed.
	driftTolerance = time.Second
	showTimeout    = 30 * time.Second
)

type armed struct {
	entry domain.ScheduleEntry
	timer clock.Timer
	seq   uint64
}

// Scheduler keeps one pending reminder per obligatory prayer and re-arms each one for
// the next day after it fires.
type Scheduler struct {
	clock  clock.Clock
	sink   domain.Sink
	gate   *Gate
	opts   Options
	logger *logrus.Entry

	mu     sync.Mutex
	active bool
	loc    *time.Location
	lead   time.Duration
	seq    uint64
	armed  map[prayer.Name]*armed
}

func NewScheduler(clk clock.Clock, sink domain.Sink, gate *Gate, opts Options, logger *logrus.Entry) *Scheduler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Scheduler{
		clock:  clk,
		sink:   sink,
		gate:   gate,
		opts:   opts,
		logger: logger,
		armed:  make(map[prayer.Name]*armed),
	}
}

// Start arms a reminder for every obligatory prayer present in times. Calling Start on an
// active scheduler replaces the previous set. On error nothing is armed.
func (s *Scheduler) Start(times map[prayer.Name]prayer.Time, loc *time.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()

	now := s.clock.Now()
	entries, err := Plan(times, now, loc, s.opts)
	if err != nil {
		return err
	}
	lead, _ := s.opts.lead()

	s.loc = loc
	s.lead = lead
	s.active = true
	for _, e := range entries {
		s.armLocked(e, now)
		s.logger.WithFields(logrus.Fields{
			"prayer":  e.Prayer.Name,
			"fire_at": e.FireAt.Format(time.RFC3339),
		}).Debug("Reminder armed")
	}
	s.logger.WithField("count", len(entries)).Info("Prayer reminders scheduled")
	return nil
}

// Cancel disarms all pending reminders. No Show happens after Cancel returns.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.logger.Info("Prayer reminders cancelled")
	}
	s.cancelLocked()
}

// Active reports whether Start succeeded and Cancel has not been called since.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Entries returns the pending reminders ordered by fire instant, ties in arming order.
func (s *Scheduler) Entries() []domain.ScheduleEntry {
	s.mu.Lock()
	list := make([]*armed, 0, len(s.armed))
	for _, a := range s.armed {
		list = append(list, a)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		if !list[i].entry.FireAt.Equal(list[j].entry.FireAt) {
			return list[i].entry.FireAt.Before(list[j].entry.FireAt)
		}
		return list[i].seq < list[j].seq
	})
	out := make([]domain.ScheduleEntry, len(list))
	for i, a := range list {
		out[i] = a.entry
	}
	return out
}

func (s *Scheduler) cancelLocked() {
	for _, a := range s.armed {
		if a.timer != nil {
			a.timer.Stop()
		}
	}
	s.armed = make(map[prayer.Name]*armed)
	s.active = false
}

func (s *Scheduler) armLocked(e domain.ScheduleEntry, now time.Time) {
	s.seq++
	a := &armed{entry: e, seq: s.seq}
	s.armed[e.Prayer.Name] = a
	a.timer = s.clock.AfterFunc(e.FireAt.Sub(now), func() { s.fire(a) })
}

func (s *Scheduler) fire(a *armed) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stopped timers may still run; only the current entry of an active scheduler counts.
	if !s.active || s.armed[a.entry.Prayer.Name] != a {
		return
	}

	now := s.clock.Now()
	e := a.entry
	log := s.logger.WithField("prayer", e.Prayer.Name)

	if e.FireAt.Sub(now) > driftTolerance {
		log.WithField("remaining", e.FireAt.Sub(now).String()).Debug("Reminder woke early, re-arming")
		a.timer = s.clock.AfterFunc(e.FireAt.Sub(now), func() { s.fire(a) })
		return
	}

	switch {
	case now.After(e.PrayerAt):
		log.WithField("prayer_at", e.PrayerAt.Format(time.RFC3339)).Warn("Skipping stale reminder")
	case !s.gate.Granted():
		log.WithField("permission", s.gate.State().String()).Debug("Reminder suppressed, permission not granted")
	default:
		s.show(e, log)
	}

	ref := e.PrayerAt.Add(time.Nanosecond)
	if now.After(ref) {
		ref = now
	}
	prayerAt, fireAt := NextFireInstant(e.Prayer, ref, s.loc, s.lead)
	s.armLocked(domain.ScheduleEntry{
		Prayer:   e.Prayer,
		PrayerAt: prayerAt,
		FireAt:   fireAt,
		Lead:     s.lead,
	}, now)
	log.WithField("fire_at", fireAt.Format(time.RFC3339)).Debug("Reminder renewed")
}

func (s *Scheduler) show(e domain.ScheduleEntry, log *logrus.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), showTimeout)
	defer cancel()

	title, body := reminderText(e)
	if err := s.sink.Show(ctx, title, body); err != nil {
		log.WithError(err).Error("Failed to show prayer reminder")
		return
	}
	log.Info("Prayer reminder shown")
}
