package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"prayer_notification_bot/internal/app"
	"prayer_notification_bot/internal/domain/prayer"
	idb "prayer_notification_bot/internal/infra/database"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type PrayerHandler struct {
	provider      prayer.Provider
	notifications app.NotificationService
	logger        *logrus.Entry
}

func NewPrayerHandler(provider prayer.Provider, notifications app.NotificationService, logger *logrus.Entry) *PrayerHandler {
	return &PrayerHandler{provider: provider, notifications: notifications, logger: logger}
}

type prayerTimesResponse struct {
	Fajr     string `json:"fajr"`
	Sunrise  string `json:"sunrise"`
	Dhuhr    string `json:"dhuhr"`
	Asr      string `json:"asr"`
	Maghrib  string `json:"maghrib"`
	Isha     string `json:"isha"`
	Date     string `json:"date"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Timezone string `json:"timezone,omitempty"`
}

type scheduleEntryResponse struct {
	Prayer      string    `json:"prayer"`
	PrayerTime  string    `json:"prayer_time"`
	PrayerAt    time.Time `json:"prayer_at"`
	FireAt      time.Time `json:"fire_at"`
	LeadMinutes int       `json:"lead_minutes"`
}

type scheduleResponse struct {
	Active  bool                    `json:"active"`
	Entries []scheduleEntryResponse `json:"entries"`
}

type notificationsRequest struct {
	Enabled *bool `json:"enabled"`
}

type notificationsResponse struct {
	Enabled           bool `json:"enabled"`
	PermissionGranted bool `json:"permission_granted,omitempty"`
	Reminders         int  `json:"reminders"`
}

func (h *PrayerHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PrayerTimes serves GET /api/prayer-times?city=&country=&date=YYYY-MM-DD.
func (h *PrayerHandler) PrayerTimes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	city, country := strings.TrimSpace(q.Get("city")), strings.TrimSpace(q.Get("country"))
	if city == "" || country == "" {
		http.Error(w, "city and country are required", http.StatusBadRequest)
		return
	}

	var date time.Time
	if raw := q.Get("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = d
	}

	tt, err := h.provider.Timings(r.Context(), city, country, date)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{"city": city, "country": country}).Warn("Prayer times lookup failed")
		http.Error(w, "Unable to fetch prayer times", http.StatusBadGateway)
		return
	}

	resp := prayerTimesResponse{Date: tt.Date, City: tt.City, Country: tt.Country}
	if tt.Location != nil {
		resp.Timezone = tt.Location.String()
	}
	clock := func(n prayer.Name) string {
		if t, ok := tt.Times[n]; ok {
			return t.Clock()
		}
		return ""
	}
	resp.Fajr, resp.Sunrise, resp.Dhuhr = clock(prayer.Fajr), clock(prayer.Sunrise), clock(prayer.Dhuhr)
	resp.Asr, resp.Maghrib, resp.Isha = clock(prayer.Asr), clock(prayer.Maghrib), clock(prayer.Isha)
	writeJSON(w, http.StatusOK, resp)
}

func (h *PrayerHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	telegramID, ok := telegramIDParam(w, r)
	if !ok {
		return
	}

	entries, active := h.notifications.Schedule(telegramID)
	resp := scheduleResponse{Active: active, Entries: make([]scheduleEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, scheduleEntryResponse{
			Prayer:      string(e.Prayer.Name),
			PrayerTime:  e.Prayer.Clock(),
			PrayerAt:    e.PrayerAt,
			FireAt:      e.FireAt,
			LeadMinutes: int(e.Lead / time.Minute),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetNotifications serves PUT /api/subscribers/{telegramID}/notifications.
func (h *PrayerHandler) SetNotifications(w http.ResponseWriter, r *http.Request) {
	telegramID, ok := telegramIDParam(w, r)
	if !ok {
		return
	}

	var req notificationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		http.Error(w, `Invalid request body, expected {"enabled": true|false}`, http.StatusBadRequest)
		return
	}

	if !*req.Enabled {
		if err := h.notifications.DisableNotifications(r.Context(), telegramID); err != nil {
			h.writeServiceError(w, telegramID, err)
			return
		}
		writeJSON(w, http.StatusOK, notificationsResponse{Enabled: false})
		return
	}

	res, err := h.notifications.EnableNotifications(r.Context(), telegramID)
	if err != nil {
		h.writeServiceError(w, telegramID, err)
		return
	}
	writeJSON(w, http.StatusOK, notificationsResponse{
		Enabled:           true,
		PermissionGranted: res.PermissionGranted,
		Reminders:         len(res.Entries),
	})
}

func (h *PrayerHandler) writeServiceError(w http.ResponseWriter, telegramID int64, err error) {
	switch {
	case err == idb.ErrSubscriberNotFound:
		http.Error(w, "Subscriber not found", http.StatusNotFound)
	case err == app.ErrLocationRequired:
		http.Error(w, "Subscriber has no location", http.StatusConflict)
	case err == app.ErrEnableInterrupted:
		http.Error(w, "Notifications were turned off while waiting for permission", http.StatusConflict)
	case errors.Is(err, app.ErrProviderUnavailable):
		http.Error(w, "Unable to fetch prayer times", http.StatusBadGateway)
	default:
		h.logger.WithError(err).WithField("subscriber_telegram_id", telegramID).Error("Notification update failed")
		http.Error(w, "Failed to update notifications", http.StatusInternalServerError)
	}
}

func telegramIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "telegramID"), 10, 64)
	if err != nil {
		http.Error(w, "telegramID must be a number", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
