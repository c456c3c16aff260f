// Package aladhan fetches daily prayer timetables from the AlAdhan timings API.
package aladhan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
	_ "time/tzdata" // Provider zones must resolve on hosts without a zoneinfo database

	"prayer_notification_bot/internal/domain/prayer"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	BaseURL    string // e.g. https://api.aladhan.com/v1
	Method     int    // Calculation method, 2 is ISNA
	School     int    // Asr juristic school, 0 is Shafi
	RatePerSec int    // Outbound request limit, zero disables it
	HTTPClient *http.Client
}

// Client implements prayer.Provider.
type Client struct {
	baseURL string
	method  int
	school  int
	http    *http.Client
	limiter *rate.Limiter
	logger  *logrus.Entry
}

func NewClient(cfg Config, logger *logrus.Entry) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return &Client{
		baseURL: cfg.BaseURL,
		method:  cfg.Method,
		school:  cfg.School,
		http:    httpClient,
		limiter: limiter,
		logger:  logger,
	}
}

type timingsResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		Timings map[string]string `json:"timings"`
		Date    struct {
			Readable string `json:"readable"`
		} `json:"date"`
		Meta struct {
			Timezone string `json:"timezone"`
		} `json:"meta"`
	} `json:"data"`
}

// Timings returns the timetable for city on date. A zero date lets the API pick the
// city's current day.
func (c *Client) Timings(ctx context.Context, city, country string, date time.Time) (*prayer.Timetable, error) {
	fail := func(err error) error {
		return &prayer.ProviderError{City: city, Country: country, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fail(err)
	}

	q := url.Values{}
	q.Set("city", city)
	q.Set("country", country)
	q.Set("method", strconv.Itoa(c.method))
	q.Set("school", strconv.Itoa(c.school))
	if !date.IsZero() {
		q.Set("date", date.Format("02-01-2006"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/timingsByCity?"+q.Encode(), nil)
	if err != nil {
		return nil, fail(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fail(fmt.Errorf("unexpected HTTP status %d", resp.StatusCode))
	}

	var body timingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fail(fmt.Errorf("decode response: %w", err))
	}
	if body.Code != http.StatusOK {
		return nil, fail(fmt.Errorf("api returned code %d (%s)", body.Code, body.Status))
	}

	raw := make(map[prayer.Name]string, len(prayer.All))
	for _, n := range prayer.All {
		if v, ok := body.Data.Timings[string(n)]; ok {
			raw[n] = v
		}
	}

	var loc *time.Location
	if tz := body.Data.Meta.Timezone; tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			c.logger.WithError(err).WithField("timezone", tz).Warn("Unknown provider time zone, using local time")
			loc = nil
		}
	}

	tt, err := prayer.NewTimetable(city, country, body.Data.Date.Readable, loc, raw)
	if err != nil {
		return nil, fail(err)
	}

	c.logger.WithFields(logrus.Fields{
		"city":    city,
		"country": country,
		"date":    tt.Date,
	}).Debug("Prayer timetable fetched")
	return tt, nil
}
