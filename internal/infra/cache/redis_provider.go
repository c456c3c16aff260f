package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"prayer_notification_bot/internal/domain/prayer"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	keyPrefix     = "prayer:timings:"
	zoneKeyPrefix = "prayer:zone:"

	readableDateLayout = "02 Jan 2006" // Provider's readable date, e.g. "19 Oct 2026"
)

// Store is the subset of *redis.Client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// NewRedisClient connects to Redis and pings it.
func NewRedisClient(ctx context.Context, address, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Username: username,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisProvider caches timetables from another prayer.Provider. Cache failures are logged
// and the wrapped provider is used instead.
type RedisProvider struct {
	next   prayer.Provider
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *logrus.Entry
}

func NewRedisProvider(next prayer.Provider, store Store, ttl time.Duration, logger *logrus.Entry) *RedisProvider {
	return &RedisProvider{next: next, store: store, ttl: ttl, now: time.Now, logger: logger}
}

type cachedTimetable struct {
	City     string            `json:"city"`
	Country  string            `json:"country"`
	Date     string            `json:"date"`
	Timezone string            `json:"timezone,omitempty"`
	Times    map[string]string `json:"times"`
}

// Timings serves a cached timetable when one exists for the requested day. A zero date
// means the city's current day, which is only known once the city's zone has been cached.
func (p *RedisProvider) Timings(ctx context.Context, city, country string, date time.Time) (*prayer.Timetable, error) {
	log := p.logger.WithFields(logrus.Fields{"city": city, "country": country})

	day, known := date, !date.IsZero()
	if !known {
		day, known = p.cityToday(ctx, city, country, log)
	}
	if known {
		if tt, ok := p.lookup(ctx, p.key(city, country, day), log); ok {
			return tt, nil
		}
	}

	tt, err := p.next.Timings(ctx, city, country, date)
	if err != nil {
		return nil, err
	}
	p.remember(ctx, city, country, date, tt, log)
	return tt, nil
}

// remember stores tt under the day the provider reported, falling back to the requested one.
func (p *RedisProvider) remember(ctx context.Context, city, country string, date time.Time, tt *prayer.Timetable, log *logrus.Entry) {
	day, err := time.Parse(readableDateLayout, tt.Date)
	if err != nil {
		if date.IsZero() {
			log.WithField("date", tt.Date).Warn("Not caching timetable with unreadable date")
			return
		}
		day = date
	}

	key := p.key(city, country, day)
	if payload, err := json.Marshal(encode(tt)); err != nil {
		log.WithError(err).Warn("Failed to encode timetable for cache")
	} else if err := p.store.Set(ctx, key, payload, p.ttl).Err(); err != nil {
		log.WithError(err).WithField("key", key).Warn("Failed to cache timetable")
	}

	if tt.Location != nil {
		if err := p.store.Set(ctx, p.zoneKey(city, country), tt.Location.String(), p.ttl).Err(); err != nil {
			log.WithError(err).Warn("Failed to cache city time zone")
		}
	}
}

// cityToday returns the current date in the city's cached zone.
func (p *RedisProvider) cityToday(ctx context.Context, city, country string, log *logrus.Entry) (time.Time, bool) {
	zone, err := p.store.Get(ctx, p.zoneKey(city, country)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).Warn("City time zone cache read failed")
		}
		return time.Time{}, false
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		log.WithError(err).WithField("zone", zone).Warn("Discarding unknown cached time zone")
		return time.Time{}, false
	}
	return p.now().In(loc), true
}

func (p *RedisProvider) lookup(ctx context.Context, key string, log *logrus.Entry) (*prayer.Timetable, bool) {
	log = log.WithField("key", key)
	raw, err := p.store.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		log.WithError(err).Warn("Timetable cache read failed")
		return nil, false
	}

	var c cachedTimetable
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		log.WithError(err).Warn("Discarding undecodable cached timetable")
		return nil, false
	}
	tt, err := decode(c)
	if err != nil {
		log.WithError(err).Warn("Discarding invalid cached timetable")
		return nil, false
	}
	log.Debug("Timetable cache hit")
	return tt, true
}

func (p *RedisProvider) key(city, country string, date time.Time) string {
	return keyPrefix + location(city, country) + "|" + date.Format("2006-01-02")
}

func (p *RedisProvider) zoneKey(city, country string) string {
	return zoneKeyPrefix + location(city, country)
}

func location(city, country string) string {
	return strings.ToLower(city) + "|" + strings.ToLower(country)
}

func encode(tt *prayer.Timetable) cachedTimetable {
	c := cachedTimetable{
		City:    tt.City,
		Country: tt.Country,
		Date:    tt.Date,
		Times:   make(map[string]string, len(tt.Times)),
	}
	if tt.Location != nil {
		c.Timezone = tt.Location.String()
	}
	for name, t := range tt.Times {
		c.Times[string(name)] = t.Clock()
	}
	return c
}

func decode(c cachedTimetable) (*prayer.Timetable, error) {
	var loc *time.Location
	if c.Timezone != "" {
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, err
		}
		loc = l
	}
	raw := make(map[prayer.Name]string, len(c.Times))
	for name, v := range c.Times {
		raw[prayer.Name(name)] = v
	}
	return prayer.NewTimetable(c.City, c.Country, c.Date, loc, raw)
}
