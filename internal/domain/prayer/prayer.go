// internal/domain/prayer/prayer.go
package prayer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Name identifies one of the six daily times reported by the provider.
type Name string

const (
	Fajr    Name = "Fajr"
	Sunrise Name = "Sunrise" // Reference time only, never reminded
	Dhuhr   Name = "Dhuhr"
	Asr     Name = "Asr"
	Maghrib Name = "Maghrib"
	Isha    Name = "Isha"
)

// All lists every provider time in daily order.
var All = []Name{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}

// Obligatory lists the five prayers eligible for a reminder, in daily order.
var Obligatory = []Name{Fajr, Dhuhr, Asr, Maghrib, Isha}

// IsObligatory reports whether n is one of the five daily prayers.
func (n Name) IsObligatory() bool {
	for _, o := range Obligatory {
		if o == n {
			return true
		}
	}
	return false
}

var ErrInvalidClock = errors.New("invalid clock time")

// Time is a prayer paired with a wall-clock time of day, resolved to the minute.
type Time struct {
	Name   Name
	Hour   int // 0..23
	Minute int // 0..59
}

// Clock renders the time of day as HH:MM.
func (t Time) Clock() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseClock parses "HH:MM". A trailing annotation such as "05:10 (EET)" is ignored.
func ParseClock(name Name, s string) (Time, error) {
	raw := strings.TrimSpace(s)
	if i := strings.IndexByte(raw, ' '); i >= 0 {
		raw = raw[:i]
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return Time{}, fmt.Errorf("%w: %s %q: expected HH:MM", ErrInvalidClock, name, s)
	}
	if !digits(parts[0], 1, 2) {
		return Time{}, fmt.Errorf("%w: %s %q: invalid hour", ErrInvalidClock, name, s)
	}
	if !digits(parts[1], 2, 2) {
		return Time{}, fmt.Errorf("%w: %s %q: invalid minute", ErrInvalidClock, name, s)
	}
	h, _ := strconv.Atoi(parts[0])
	if h > 23 {
		return Time{}, fmt.Errorf("%w: %s %q: invalid hour", ErrInvalidClock, name, s)
	}
	m, _ := strconv.Atoi(parts[1])
	if m > 59 {
		return Time{}, fmt.Errorf("%w: %s %q: invalid minute", ErrInvalidClock, name, s)
	}
	return Time{Name: name, Hour: h, Minute: m}, nil
}

// digits reports whether s is minLen to maxLen ASCII digits long and holds nothing else.
func digits(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
