package app

import (
	"context"
	"testing"

	idb "prayer_notification_bot/internal/infra/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	repo := idb.NewMemorySubscriberRepository()
	svc := NewSubscriberService(repo, 7)
	ctx := context.Background()

	sub, err := svc.Register(ctx, 10, "Maryam", " Cairo", "Egypt ")
	require.NoError(t, err)
	assert.Equal(t, "Cairo", sub.City)
	assert.Equal(t, "Egypt", sub.Country)
	assert.Equal(t, 7, sub.LeadMinutes)
	assert.False(t, sub.NotificationsEnabled)
	assert.False(t, sub.PermissionGranted)

	_, err = svc.Register(ctx, 10, "Maryam", "Cairo", "Egypt")
	assert.Equal(t, ErrSubscriberAlreadyExists, err)

	_, err = svc.Register(ctx, 11, "Omar", "Cairo", "")
	assert.Equal(t, ErrLocationRequired, err)

	got, err := svc.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)
}

func TestListSubscribers(t *testing.T) {
	repo := idb.NewMemorySubscriberRepository()
	subs := NewSubscriberService(repo, 5)
	admin := NewAdminService(repo, 1)
	ctx := context.Background()

	a, err := subs.Register(ctx, 10, "A", "Cairo", "Egypt")
	require.NoError(t, err)
	_, err = subs.Register(ctx, 11, "B", "Doha", "Qatar")
	require.NoError(t, err)
	a.NotificationsEnabled = true
	require.NoError(t, repo.Update(ctx, a))

	_, err = admin.ListSubscribers(ctx, 99, false)
	assert.Equal(t, ErrAdminNotAuthorized, err)

	all, err := admin.ListSubscribers(ctx, 1, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	enabled, err := admin.ListSubscribers(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, int64(10), enabled[0].TelegramID)
}
