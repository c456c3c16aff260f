// internal/domain/reminder/entry.go
package reminder

import (
	"time"

	"prayer_notification_bot/internal/domain/prayer"
)

// ScheduleEntry is one armed reminder. Entries are derived from a Timetable and live only
// as long as the scheduler that armed them.
type ScheduleEntry struct {
	Prayer   prayer.Time
	PrayerAt time.Time     // Absolute instant of the prayer occurrence being reminded
	FireAt   time.Time     // PrayerAt minus Lead
	Lead     time.Duration // Lead time applied
}
