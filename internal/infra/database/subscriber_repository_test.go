package database

import (
	"context"
	"path/filepath"
	"testing"

	"prayer_notification_bot/internal/domain/subscriber"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRepos(t *testing.T) map[string]subscriber.Repository {
	t.Helper()
	ctx := context.Background()

	sqliteRepo, closeSQLite, err := OpenSubscriberRepository(ctx, StoreConfig{
		Driver:     DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "prayer.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeSQLite() })

	return map[string]subscriber.Repository{
		"memory": NewMemorySubscriberRepository(),
		"sqlite": sqliteRepo,
	}
}

func TestSubscriberRepositories(t *testing.T) {
	for name, repo := range openRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			s := &subscriber.Subscriber{
				TelegramID:           42,
				FirstName:            "Amina",
				City:                 "Cairo",
				Country:              "Egypt",
				LeadMinutes:          5,
				NotificationsEnabled: true,
			}
			require.NoError(t, repo.Create(ctx, s))
			assert.NotZero(t, s.ID)
			assert.False(t, s.CreatedAt.IsZero())

			err := repo.Create(ctx, &subscriber.Subscriber{TelegramID: 42})
			assert.Equal(t, ErrDuplicateTelegramID, err)

			got, err := repo.GetByTelegramID(ctx, 42)
			require.NoError(t, err)
			assert.Equal(t, "Cairo", got.City)
			assert.True(t, got.NotificationsEnabled)
			assert.False(t, got.PermissionGranted)

			got.City = "Alexandria"
			got.LeadMinutes = 15
			got.PermissionGranted = true
			require.NoError(t, repo.Update(ctx, got))

			again, err := repo.GetByTelegramID(ctx, 42)
			require.NoError(t, err)
			assert.Equal(t, "Alexandria", again.City)
			assert.Equal(t, 15, again.LeadMinutes)
			assert.True(t, again.PermissionGranted)

			_, err = repo.GetByTelegramID(ctx, 7)
			assert.Equal(t, ErrSubscriberNotFound, err)

			assert.Equal(t, ErrSubscriberNotFound, repo.Update(ctx, &subscriber.Subscriber{ID: 999}))
		})
	}
}

func TestSubscriberRepositoriesListing(t *testing.T) {
	for name, repo := range openRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, enabled := range []bool{true, false, true} {
				require.NoError(t, repo.Create(ctx, &subscriber.Subscriber{
					TelegramID:           int64(100 + i),
					City:                 "Istanbul",
					Country:              "Turkey",
					LeadMinutes:          5,
					NotificationsEnabled: enabled,
				}))
			}

			all, err := repo.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, int64(100), all[0].TelegramID)

			enabled, err := repo.ListNotificationsEnabled(ctx)
			require.NoError(t, err)
			require.Len(t, enabled, 2)
			assert.Equal(t, int64(100), enabled[0].TelegramID)
			assert.Equal(t, int64(102), enabled[1].TelegramID)
		})
	}
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySubscriberRepository()
	require.NoError(t, repo.Create(ctx, &subscriber.Subscriber{TelegramID: 1, City: "Doha", Country: "Qatar"}))

	got, err := repo.GetByTelegramID(ctx, 1)
	require.NoError(t, err)
	got.City = "changed"

	again, err := repo.GetByTelegramID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Doha", again.City)
}

func TestOpenSubscriberRepositoryUnknownDriver(t *testing.T) {
	_, _, err := OpenSubscriberRepository(context.Background(), StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}
