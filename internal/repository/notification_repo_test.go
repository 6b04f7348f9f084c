package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartlink/discovery/internal/db"
	"github.com/heartlink/discovery/internal/repository"
)

func TestNotificationListPagination(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewNotificationRepository(dbase)

	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)
	for i := 0; i < 3; i++ {
		n := db.Notification{
			UserID: 7, FromUserID: uint64(i + 1),
			Type: db.NotificationLike, Content: "liked you",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, dbase.Create(&n).Error)
	}

	page1, next, err := repo.ListByUser(ctx, 7, nil, 2)
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Len(t, page1, 2)
	// newest first
	assert.Equal(t, uint64(3), page1[0].FromUserID)
	assert.Equal(t, uint64(2), page1[1].FromUserID)

	page2, next2, err := repo.ListByUser(ctx, 7, next, 2)
	require.NoError(t, err)
	assert.Nil(t, next2)
	require.Len(t, page2, 1)
	assert.Equal(t, uint64(1), page2[0].FromUserID)
}

func TestNotificationMarkRead(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewNotificationRepository(dbase)

	n := db.Notification{UserID: 7, FromUserID: 1, Type: db.NotificationMatch}
	require.NoError(t, repo.Create(ctx, &n))

	count, err := repo.CountUnread(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// wrong owner cannot flip it
	updated, err := repo.MarkRead(ctx, n.ID, 8)
	require.NoError(t, err)
	assert.False(t, updated)

	updated, err = repo.MarkRead(ctx, n.ID, 7)
	require.NoError(t, err)
	assert.True(t, updated)

	count, err = repo.CountUnread(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestListViewersDedupe(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewViewRepository(dbase)

	// viewer 1 visited twice, viewer 2 once, viewer 3 is blocked
	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)
	views := []db.ProfileView{
		{ViewerID: 1, ViewedUserID: 9, CreatedAt: base},
		{ViewerID: 2, ViewedUserID: 9, CreatedAt: base.Add(time.Minute)},
		{ViewerID: 1, ViewedUserID: 9, CreatedAt: base.Add(2 * time.Minute)},
		{ViewerID: 3, ViewedUserID: 9, CreatedAt: base.Add(3 * time.Minute)},
	}
	require.NoError(t, dbase.Create(&views).Error)
	require.NoError(t, dbase.Create(&db.Block{UserID: 9, BlockedUserID: 3}).Error)

	entries, err := repo.ListViewers(ctx, 9, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// one entry per viewer, most recent visit first, with the newest
	// timestamp surviving the dedup as a real time value
	assert.Equal(t, uint64(1), entries[0].ViewerID)
	assert.WithinDuration(t, base.Add(2*time.Minute), entries[0].LastSeen, time.Millisecond)
	assert.Equal(t, uint64(2), entries[1].ViewerID)
	assert.WithinDuration(t, base.Add(time.Minute), entries[1].LastSeen, time.Millisecond)

	total, err := repo.CountViews(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}
