package telegram

import (
	"testing"
	"time"

	"prayer_notification_bot/internal/app"
	"prayer_notification_bot/internal/domain/prayer"
	domainReminder "prayer_notification_bot/internal/domain/reminder"
	"prayer_notification_bot/internal/domain/subscriber"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		payload       string
		city, country string
		ok            bool
	}{
		{"Cairo, Egypt", "Cairo", "Egypt", true},
		{"  New York ,  United States ", "New York", "United States", true},
		{"Cairo", "", "", false},
		{", Egypt", "", "Egypt", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			city, country, ok := parseLocation(tt.payload)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.city, city)
				assert.Equal(t, tt.country, country)
			}
		})
	}
}

func TestFormatTimetable(t *testing.T) {
	tt, err := prayer.NewTimetable("Cairo", "Egypt", "19 Oct 2026", nil, map[prayer.Name]string{
		prayer.Isha:    "20:05",
		prayer.Fajr:    "05:10",
		prayer.Sunrise: "06:30",
	})
	require.NoError(t, err)

	assert.Equal(t, "Prayer times for Cairo, Egypt (19 Oct 2026)\n"+
		"Fajr     05:10\n"+
		"Sunrise  06:30\n"+
		"Isha     20:05\n", formatTimetable(tt))
}

func TestFormatSchedule(t *testing.T) {
	assert.Equal(t, "No reminders are scheduled.", formatSchedule(nil))

	entries := []domainReminder.ScheduleEntry{{
		Prayer:   prayer.Time{Name: prayer.Maghrib, Hour: 18, Minute: 42},
		PrayerAt: time.Date(2026, time.October, 19, 18, 42, 0, 0, time.UTC),
		FireAt:   time.Date(2026, time.October, 19, 18, 37, 0, 0, time.UTC),
		Lead:     5 * time.Minute,
	}}
	assert.Equal(t, "Upcoming reminders:\nMaghrib 18:42, reminder at Mon 19 Oct 18:37\n", formatSchedule(entries))
}

func TestFormatSubscribers(t *testing.T) {
	out := formatSubscribers("All subscribers", []*subscriber.Subscriber{
		{ID: 1, TelegramID: 42, FirstName: "Amina", City: "Cairo", Country: "Egypt", LeadMinutes: 5, NotificationsEnabled: true},
	})
	assert.Equal(t, "--- All subscribers ---\nID: 1, Telegram ID: 42, Name: Amina, Location: Cairo, Egypt, Lead: 5 min, Reminders: on\n", out)
}

func TestEnabledText(t *testing.T) {
	res := &app.EnableResult{
		PermissionGranted: true,
		Entries: []domainReminder.ScheduleEntry{{
			Prayer: prayer.Time{Name: prayer.Maghrib, Hour: 18, Minute: 42},
			FireAt: time.Date(2026, time.October, 19, 18, 37, 0, 0, time.UTC),
		}},
	}
	assert.Equal(t, "Prayer reminders are on. Next: Maghrib at 18:37.", enabledText(res))

	res.PermissionGranted = false
	res.Permission = domainReminder.PermissionDenied
	assert.Equal(t, msgDenied, enabledText(res))

	res.Permission = domainReminder.PermissionUnknown
	assert.Equal(t, msgUnanswered, enabledText(res))
}
