package reminder

import (
	"errors"
	"testing"
	"time"

	"prayer_notification_bot/internal/domain/prayer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextFireInstant(t *testing.T) {
	lead := 5 * time.Minute
	maghrib := hm(prayer.Maghrib, 18, 42)

	tests := []struct {
		name         string
		now          time.Time
		wantPrayerAt time.Time
		wantFireAt   time.Time
	}{
		{"later today", at(18, 0), at(18, 42), at(18, 37)},
		{"exactly at fire instant", at(18, 37), at(18, 42), at(18, 37)},
		{"inside lead window", at(18, 40), tomorrow(18, 42), tomorrow(18, 37)},
		{"exactly at prayer time", at(18, 42), tomorrow(18, 42), tomorrow(18, 37)},
		{"already passed", at(21, 0), tomorrow(18, 42), tomorrow(18, 37)},
		{"just after midnight", at(0, 1), at(18, 42), at(18, 37)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prayerAt, fireAt := NextFireInstant(maghrib, tt.now, nil, lead)
			assert.Equal(t, tt.wantPrayerAt, prayerAt)
			assert.Equal(t, tt.wantFireAt, fireAt)
			assert.False(t, fireAt.Before(tt.now))
		})
	}
}

func TestNextFireInstantLeadCrossesMidnight(t *testing.T) {
	fajr := hm(prayer.Fajr, 0, 3)

	prayerAt, fireAt := NextFireInstant(fajr, at(0, 1), nil, 5*time.Minute)

	assert.Equal(t, tomorrow(0, 3), prayerAt)
	assert.Equal(t, tomorrow(0, 3).Add(-5*time.Minute), fireAt)
}

func TestNextFireInstantUsesTimetableLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 16:00 UTC is 19:00 in loc, so Maghrib at 18:42 local has passed.
	prayerAt, fireAt := NextFireInstant(hm(prayer.Maghrib, 18, 42), at(16, 0), loc, 5*time.Minute)

	assert.Equal(t, time.Date(2026, time.October, 20, 18, 42, 0, 0, loc), prayerAt)
	assert.Equal(t, time.Date(2026, time.October, 20, 18, 37, 0, 0, loc), fireAt)
}

func TestPlanScenario(t *testing.T) {
	entries, err := Plan(scenarioTimes(), at(18, 0), nil, Options{LeadMinutes: 5})
	require.NoError(t, err)
	require.Len(t, entries, 5)

	want := map[prayer.Name]time.Time{
		prayer.Fajr:    tomorrow(5, 5),
		prayer.Dhuhr:   tomorrow(12, 10),
		prayer.Asr:     tomorrow(15, 40),
		prayer.Maghrib: at(18, 37),
		prayer.Isha:    at(20, 0),
	}
	for _, e := range entries {
		assert.NotEqual(t, prayer.Sunrise, e.Prayer.Name)
		assert.Equal(t, want[e.Prayer.Name], e.FireAt, e.Prayer.Name)
		assert.Equal(t, e.PrayerAt.Add(-5*time.Minute), e.FireAt)
		assert.False(t, e.FireAt.Before(at(18, 0)))
	}
}

func TestPlanAllFutureArmsEveryObligatoryPrayer(t *testing.T) {
	entries, err := Plan(scenarioTimes(), at(0, 30), nil, Options{})
	require.NoError(t, err)

	require.Len(t, entries, 5)
	for i, e := range entries {
		assert.Equal(t, prayer.Obligatory[i], e.Prayer.Name)
		assert.Equal(t, 19, e.PrayerAt.Day())
		assert.Equal(t, DefaultLeadMinutes*time.Minute, e.Lead)
	}
}

func TestPlanIsIdempotent(t *testing.T) {
	first, err := Plan(scenarioTimes(), at(13, 0), nil, Options{LeadMinutes: 10})
	require.NoError(t, err)
	second, err := Plan(scenarioTimes(), at(13, 0), nil, Options{LeadMinutes: 10})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPlanSkipsMissingPrayers(t *testing.T) {
	times := map[prayer.Name]prayer.Time{
		prayer.Fajr: hm(prayer.Fajr, 5, 10),
		prayer.Isha: hm(prayer.Isha, 20, 5),
	}

	entries, err := Plan(times, at(12, 0), nil, Options{})
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, prayer.Fajr, entries[0].Prayer.Name)
	assert.Equal(t, prayer.Isha, entries[1].Prayer.Name)
}

func TestPlanRejectsMalformedTime(t *testing.T) {
	times := scenarioTimes()
	times[prayer.Asr] = hm(prayer.Asr, 25, 0)

	entries, err := Plan(times, at(12, 0), nil, Options{})

	assert.True(t, errors.Is(err, prayer.ErrInvalidClock))
	assert.Empty(t, entries)
}

func TestPlanRejectsNegativeLead(t *testing.T) {
	_, err := Plan(scenarioTimes(), at(12, 0), nil, Options{LeadMinutes: -1})
	assert.ErrorIs(t, err, ErrInvalidLead)
}

func TestReminderText(t *testing.T) {
	entries, err := Plan(scenarioTimes(), at(18, 0), nil, Options{LeadMinutes: 5})
	require.NoError(t, err)

	var maghrib = entries[3]
	require.Equal(t, prayer.Maghrib, maghrib.Prayer.Name)

	title, body := reminderText(maghrib)
	assert.Equal(t, "Maghrib Prayer Reminder", title)
	assert.Equal(t, "Maghrib prayer time is in 5 minutes (18:42)", body)
}
