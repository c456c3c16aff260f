// internal/domain/prayer/timetable.go
package prayer

import (
	"context"
	"fmt"
	"time"
)

// Timetable is one day's prayer times for a location, as returned by the provider.
type Timetable struct {
	City     string
	Country  string
	Date     string         // Provider's readable date, e.g. "19 Oct 2026"
	Location *time.Location // Provider's time zone; nil means the device's local zone
	Times    map[Name]Time
}

// NewTimetable parses raw "HH:MM" strings keyed by prayer name. Unknown names are ignored
// and absent ones are simply missing from the result; a malformed value fails the whole table.
func NewTimetable(city, country, date string, loc *time.Location, raw map[Name]string) (*Timetable, error) {
	tt := &Timetable{
		City:     city,
		Country:  country,
		Date:     date,
		Location: loc,
		Times:    make(map[Name]Time, len(All)),
	}
	for _, n := range All {
		s, ok := raw[n]
		if !ok {
			continue
		}
		t, err := ParseClock(n, s)
		if err != nil {
			return nil, err
		}
		tt.Times[n] = t
	}
	return tt, nil
}

// Ordered returns the present times in daily order.
func (t *Timetable) Ordered() []Time {
	out := make([]Time, 0, len(t.Times))
	for _, n := range All {
		if pt, ok := t.Times[n]; ok {
			out = append(out, pt)
		}
	}
	return out
}

// Provider fetches a day's prayer times for a city. A zero date means "today".
type Provider interface {
	Timings(ctx context.Context, city, country string, date time.Time) (*Timetable, error)
}

// ProviderError wraps a failed fetch with the location it was for.
type ProviderError struct {
	City    string
	Country string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("prayer times for %s, %s: %v", e.City, e.Country, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
