package reminder

import (
	"errors"
	"fmt"
	"time"

	"prayer_notification_bot/internal/domain/prayer"
	domain "prayer_notification_bot/internal/domain/reminder"
)

// DefaultLeadMinutes is used when Options.LeadMinutes is zero.
const DefaultLeadMinutes = 5

var ErrInvalidLead = errors.New("lead minutes must be positive")

// Options configures a Scheduler.
type Options struct {
	LeadMinutes int // Reminder fires this many minutes before the prayer's clock time
}

func (o Options) lead() (time.Duration, error) {
	switch {
	case o.LeadMinutes == 0:
		return DefaultLeadMinutes * time.Minute, nil
	case o.LeadMinutes < 0:
		return 0, fmt.Errorf("%w: %d", ErrInvalidLead, o.LeadMinutes)
	}
	return time.Duration(o.LeadMinutes) * time.Minute, nil
}

// NextFireInstant returns the next occurrence of pt relative to now and the instant its
// reminder should fire. Candidates are built in loc, or in now's location when loc is nil.
// The result is never in the past: a prayer whose reminder window already closed today
// moves to tomorrow. A fire instant equal to now is kept.
func NextFireInstant(pt prayer.Time, now time.Time, loc *time.Location, lead time.Duration) (prayerAt, fireAt time.Time) {
	if loc == nil {
		loc = now.Location()
	}
	local := now.In(loc)
	prayerAt = time.Date(local.Year(), local.Month(), local.Day(), pt.Hour, pt.Minute, 0, 0, loc)
	if prayerAt.Before(now) {
		prayerAt = prayerAt.AddDate(0, 0, 1)
	}
	fireAt = prayerAt.Add(-lead)
	if fireAt.Before(now) {
		prayerAt = prayerAt.AddDate(0, 0, 1)
		fireAt = prayerAt.Add(-lead)
	}
	return prayerAt, fireAt
}

// Plan computes the reminders a scheduler would arm for times at now, in daily prayer
// order. Sunrise and absent prayers are skipped. Any out-of-range time fails the whole plan.
func Plan(times map[prayer.Name]prayer.Time, now time.Time, loc *time.Location, opts Options) ([]domain.ScheduleEntry, error) {
	lead, err := opts.lead()
	if err != nil {
		return nil, err
	}
	if err := validate(times); err != nil {
		return nil, err
	}

	entries := make([]domain.ScheduleEntry, 0, len(prayer.Obligatory))
	for _, name := range prayer.Obligatory {
		pt, ok := times[name]
		if !ok {
			continue
		}
		prayerAt, fireAt := NextFireInstant(pt, now, loc, lead)
		entries = append(entries, domain.ScheduleEntry{
			Prayer:   pt,
			PrayerAt: prayerAt,
			FireAt:   fireAt,
			Lead:     lead,
		})
	}
	return entries, nil
}

func validate(times map[prayer.Name]prayer.Time) error {
	for name, pt := range times {
		if pt.Hour < 0 || pt.Hour > 23 || pt.Minute < 0 || pt.Minute > 59 {
			return fmt.Errorf("%w: %s %02d:%02d", prayer.ErrInvalidClock, name, pt.Hour, pt.Minute)
		}
	}
	return nil
}

func reminderText(e domain.ScheduleEntry) (title, body string) {
	title = fmt.Sprintf("%s Prayer Reminder", e.Prayer.Name)
	body = fmt.Sprintf("%s prayer time is in %d minutes (%s)", e.Prayer.Name, int(e.Lead/time.Minute), e.Prayer.Clock())
	return title, body
}
