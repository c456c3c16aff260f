package aladhan

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"prayer_notification_bot/internal/domain/prayer"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{
  "code": 200,
  "status": "OK",
  "data": {
    "timings": {
      "Fajr": "05:10", "Sunrise": "06:30", "Dhuhr": "12:15", "Asr": "15:45",
      "Sunset": "18:40", "Maghrib": "18:42", "Isha": "20:05", "Imsak": "05:00",
      "Midnight": "00:12"
    },
    "date": {"readable": "19 Oct 2026"},
    "meta": {"timezone": "Africa/Cairo"}
  }
}`

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Method: 2, School: 0}, testLogger())
}

func TestTimings(t *testing.T) {
	var gotQuery map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/timingsByCity", r.URL.Path)
		gotQuery = map[string]string{
			"city":    r.URL.Query().Get("city"),
			"country": r.URL.Query().Get("country"),
			"method":  r.URL.Query().Get("method"),
			"school":  r.URL.Query().Get("school"),
			"date":    r.URL.Query().Get("date"),
		}
		io.WriteString(w, okBody)
	})

	tt, err := c.Timings(context.Background(), "Cairo", "Egypt", time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"city": "Cairo", "country": "Egypt", "method": "2", "school": "0", "date": "19-10-2026",
	}, gotQuery)
	assert.Equal(t, "19 Oct 2026", tt.Date)
	assert.Len(t, tt.Times, 6)
	assert.Equal(t, prayer.Time{Name: prayer.Maghrib, Hour: 18, Minute: 42}, tt.Times[prayer.Maghrib])
	require.NotNil(t, tt.Location)
	assert.Equal(t, "Africa/Cairo", tt.Location.String())
}

func TestTimingsOmitsZeroDate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, has := r.URL.Query()["date"]
		assert.False(t, has)
		io.WriteString(w, okBody)
	})

	_, err := c.Timings(context.Background(), "Cairo", "Egypt", time.Time{})
	require.NoError(t, err)
}

func TestTimingsFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"http error", http.StatusInternalServerError, `oops`, nil},
		{"api error code", http.StatusOK, `{"code": 400, "status": "Bad Request", "data": {}}`, nil},
		{"invalid json", http.StatusOK, `{"code":`, nil},
		{"malformed time", http.StatusOK, `{"code": 200, "data": {"timings": {"Fajr": "5am"}}}`, prayer.ErrInvalidClock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			res, err := c.Timings(context.Background(), "Cairo", "Egypt", time.Time{})

			assert.Nil(t, res)
			var perr *prayer.ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "Cairo", perr.City)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestTimingsUnknownTimezoneFallsBackToLocal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code": 200, "data": {"timings": {"Fajr": "05:10"}, "meta": {"timezone": "Mars/Olympus"}}}`)
	})

	tt, err := c.Timings(context.Background(), "Cairo", "Egypt", time.Time{})
	require.NoError(t, err)
	assert.Nil(t, tt.Location)
	assert.Len(t, tt.Times, 1)
}

func TestTimingsRespectsCancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, okBody)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Timings(ctx, "Cairo", "Egypt", time.Time{})
	assert.ErrorIs(t, err, context.Canceled)
}
