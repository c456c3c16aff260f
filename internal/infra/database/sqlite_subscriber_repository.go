package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"prayer_notification_bot/internal/domain/subscriber"
)

// SQLiteSubscriberRepository stores subscribers in an embedded SQLite file.
// Timestamps are unix seconds and booleans are 0/1 integers.
type SQLiteSubscriberRepository struct {
	db *sql.DB
}

func NewSQLiteSubscriberRepository(db *sql.DB) *SQLiteSubscriberRepository {
	return &SQLiteSubscriberRepository{db: db}
}

func (r *SQLiteSubscriberRepository) Create(ctx context.Context, s *subscriber.Subscriber) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO subscribers (
			telegram_id, first_name, city, country, lead_minutes,
			notifications_enabled, permission_granted, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.TelegramID, s.FirstName, s.City, s.Country, s.LeadMinutes,
		boolToInt(s.NotificationsEnabled), boolToInt(s.PermissionGranted), now.Unix(), now.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateTelegramID
		}
		return fmt.Errorf("error creating subscriber: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("error reading subscriber id: %w", err)
	}
	s.ID = id
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

func (r *SQLiteSubscriberRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*subscriber.Subscriber, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+subscriberColumns+` FROM subscribers WHERE telegram_id = ?`, telegramID)
	s, err := scanSQLiteSubscriber(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("error getting subscriber by Telegram ID: %w", err)
	}
	return s, nil
}

func (r *SQLiteSubscriberRepository) Update(ctx context.Context, s *subscriber.Subscriber) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscribers
		SET first_name = ?, city = ?, country = ?, lead_minutes = ?,
		    notifications_enabled = ?, permission_granted = ?, updated_at = ?
		WHERE id = ?`,
		s.FirstName, s.City, s.Country, s.LeadMinutes,
		boolToInt(s.NotificationsEnabled), boolToInt(s.PermissionGranted), now.Unix(), s.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating subscriber: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error updating subscriber: %w", err)
	}
	if n == 0 {
		return ErrSubscriberNotFound
	}
	s.UpdatedAt = now
	return nil
}

func (r *SQLiteSubscriberRepository) ListNotificationsEnabled(ctx context.Context) ([]*subscriber.Subscriber, error) {
	return r.list(ctx, `SELECT `+subscriberColumns+` FROM subscribers WHERE notifications_enabled = 1 ORDER BY id`)
}

func (r *SQLiteSubscriberRepository) ListAll(ctx context.Context) ([]*subscriber.Subscriber, error) {
	return r.list(ctx, `SELECT `+subscriberColumns+` FROM subscribers ORDER BY id`)
}

func (r *SQLiteSubscriberRepository) list(ctx context.Context, query string) ([]*subscriber.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []*subscriber.Subscriber
	for rows.Next() {
		s, err := scanSQLiteSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning subscriber: %w", err)
		}
		subscribers = append(subscribers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscribers: %w", err)
	}
	return subscribers, nil
}

func scanSQLiteSubscriber(row rowScanner) (*subscriber.Subscriber, error) {
	var (
		s                  subscriber.Subscriber
		enabled, permitted int
		created, updated   int64
	)
	if err := row.Scan(&s.ID, &s.TelegramID, &s.FirstName, &s.City, &s.Country, &s.LeadMinutes,
		&enabled, &permitted, &created, &updated); err != nil {
		return nil, err
	}
	s.NotificationsEnabled = enabled != 0
	s.PermissionGranted = permitted != 0
	s.CreatedAt = time.Unix(created, 0).UTC()
	s.UpdatedAt = time.Unix(updated, 0).UTC()
	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
