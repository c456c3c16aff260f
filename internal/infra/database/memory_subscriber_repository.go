package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"prayer_notification_bot/internal/domain/subscriber"
)

// MemorySubscriberRepository keeps subscribers in process memory. It backs STORE_DRIVER=memory
// and the service tests.
type MemorySubscriberRepository struct {
	mu     sync.RWMutex
	nextID int64
	byTGID map[int64]*subscriber.Subscriber
}

func NewMemorySubscriberRepository() *MemorySubscriberRepository {
	return &MemorySubscriberRepository{byTGID: make(map[int64]*subscriber.Subscriber)}
}

func (r *MemorySubscriberRepository) Create(_ context.Context, s *subscriber.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byTGID[s.TelegramID]; ok {
		return ErrDuplicateTelegramID
	}
	r.nextID++
	now := time.Now().UTC()
	s.ID = r.nextID
	s.CreatedAt = now
	s.UpdatedAt = now

	stored := *s
	r.byTGID[s.TelegramID] = &stored
	return nil
}

func (r *MemorySubscriberRepository) GetByTelegramID(_ context.Context, telegramID int64) (*subscriber.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byTGID[telegramID]
	if !ok {
		return nil, ErrSubscriberNotFound
	}
	out := *s
	return &out, nil
}

func (r *MemorySubscriberRepository) Update(_ context.Context, s *subscriber.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for tgID, existing := range r.byTGID {
		if existing.ID != s.ID {
			continue
		}
		s.UpdatedAt = time.Now().UTC()
		s.CreatedAt = existing.CreatedAt
		s.TelegramID = tgID
		stored := *s
		r.byTGID[tgID] = &stored
		return nil
	}
	return ErrSubscriberNotFound
}

func (r *MemorySubscriberRepository) ListNotificationsEnabled(_ context.Context) ([]*subscriber.Subscriber, error) {
	return r.list(func(s *subscriber.Subscriber) bool { return s.NotificationsEnabled }), nil
}

func (r *MemorySubscriberRepository) ListAll(_ context.Context) ([]*subscriber.Subscriber, error) {
	return r.list(func(*subscriber.Subscriber) bool { return true }), nil
}

func (r *MemorySubscriberRepository) list(keep func(*subscriber.Subscriber) bool) []*subscriber.Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*subscriber.Subscriber, 0, len(r.byTGID))
	for _, s := range r.byTGID {
		if keep(s) {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
