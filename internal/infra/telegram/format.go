package telegram

import (
	"fmt"
	"strings"

	"prayer_notification_bot/internal/domain/prayer"
	domainReminder "prayer_notification_bot/internal/domain/reminder"
	"prayer_notification_bot/internal/domain/subscriber"
)

// parseLocation splits "City, Country". Both parts are required.
func parseLocation(payload string) (city, country string, ok bool) {
	parts := strings.SplitN(payload, ",", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	city, country = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	return city, country, city != "" && country != ""
}

func formatTimetable(tt *prayer.Timetable) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prayer times for %s, %s", tt.City, tt.Country)
	if tt.Date != "" {
		fmt.Fprintf(&b, " (%s)", tt.Date)
	}
	b.WriteString("\n")
	for _, t := range tt.Ordered() {
		fmt.Fprintf(&b, "%-8s %s\n", t.Name, t.Clock())
	}
	return b.String()
}

func formatSchedule(entries []domainReminder.ScheduleEntry) string {
	if len(entries) == 0 {
		return "No reminders are scheduled."
	}
	var b strings.Builder
	b.WriteString("Upcoming reminders:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s, reminder at %s\n", e.Prayer.Name, e.Prayer.Clock(), e.FireAt.Format("Mon 02 Jan 15:04"))
	}
	return b.String()
}

func formatSubscribers(title string, list []*subscriber.Subscriber) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s ---\n", title)
	for _, s := range list {
		status := "off"
		if s.NotificationsEnabled {
			status = "on"
		}
		fmt.Fprintf(&b, "ID: %d, Telegram ID: %d, Name: %s, Location: %s, %s, Lead: %d min, Reminders: %s\n",
			s.ID, s.TelegramID, s.FirstName, s.City, s.Country, s.LeadMinutes, status)
	}
	return b.String()
}
