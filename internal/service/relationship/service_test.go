package relationship_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/heartlink/discovery/internal/app"
	"github.com/heartlink/discovery/internal/apperr"
	"github.com/heartlink/discovery/internal/async"
	"github.com/heartlink/discovery/internal/cache"
	"github.com/heartlink/discovery/internal/config"
	"github.com/heartlink/discovery/internal/db"
	"github.com/heartlink/discovery/internal/fame"
	"github.com/heartlink/discovery/internal/geo"
	"github.com/heartlink/discovery/internal/repository"
	"github.com/heartlink/discovery/internal/service/notification"
	"github.com/heartlink/discovery/internal/service/relationship"
)

// fakeRegistry records push deliveries without real sockets.
type fakeRegistry struct {
	mu   sync.Mutex
	sent map[uint64]int
}

func (f *fakeRegistry) SendToUser(userID uint64, _ []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = make(map[uint64]int)
	}
	f.sent[userID]++
	return 1
}

// seedPair inserts users 1 (alice) and 2 (bob), both verified with a photo,
// plus 3 (carol) who has no photo yet.
func seedPair(t *testing.T, gdb *gorm.DB) {
	t.Helper()

	users := []db.User{
		{ID: 1, Username: "alice", Email: "a@test.com", PasswordHash: "x", Verified: true, Active: true},
		{ID: 2, Username: "bob", Email: "b@test.com", PasswordHash: "x", Verified: true, Active: true},
		{ID: 3, Username: "carol", Email: "c@test.com", PasswordHash: "x", Verified: true, Active: true},
	}
	require.NoError(t, gdb.Create(&users).Error)

	birth := time.Date(1996, 3, 1, 0, 0, 0, 0, time.UTC)
	profiles := []db.Profile{
		{UserID: 1, Gender: "female", Orientation: "straight", BirthDate: birth, PhotoCount: 2},
		{UserID: 2, Gender: "male", Orientation: "straight", BirthDate: birth, PhotoCount: 1},
		{UserID: 3, Gender: "female", Orientation: "bisexual", BirthDate: birth, PhotoCount: 0},
	}
	require.NoError(t, gdb.Create(&profiles).Error)
}

func setupService(t *testing.T) (*relationship.Service, *gorm.DB) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))
	seedPair(t, dbase)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	log := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests
	pool, err := async.New(4, time.Second, log)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	appCtx := app.New(dbase, cache.NewRedisCache(cfg), log, pool, &fakeRegistry{}, geo.NewHTTPGeocoder(cfg))

	userRepo := repository.NewUserRepository(dbase)
	aggregator := fame.NewAggregator(userRepo, userRepo, pool, log)
	dispatcher := notification.NewDispatcher(appCtx)

	return relationship.NewService(appCtx, dispatcher, aggregator), dbase
}

func notificationsFor(t *testing.T, gdb *gorm.DB, userID uint64, typ string) []db.Notification {
	t.Helper()
	var rows []db.Notification
	require.NoError(t, gdb.Where("user_id = ? AND type = ?", userID, typ).Find(&rows).Error)
	return rows
}

func TestLikeThenMutualMatch(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	res, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.False(t, res.Match)

	// target got exactly one LIKE notification
	assert.Len(t, notificationsFor(t, gdb, 2, db.NotificationLike), 1)

	// bob likes back: match, one MATCH notification each, no extra LIKE
	res, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, res.Match)

	assert.Len(t, notificationsFor(t, gdb, 1, db.NotificationMatch), 1)
	assert.Len(t, notificationsFor(t, gdb, 2, db.NotificationMatch), 1)
	assert.Len(t, notificationsFor(t, gdb, 1, db.NotificationLike), 0)
}

func fameOf(t *testing.T, gdb *gorm.DB, userID uint64) float64 {
	t.Helper()
	var p db.Profile
	require.NoError(t, gdb.First(&p, "user_id = ?", userID).Error)
	return p.FameRating
}

func TestMutualLikeRecomputesBothSides(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	_, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)

	// both sides now hold one like and one match plus the photo bonus:
	// 2*1 + 5*1 + 10 = 17, on the actor of the completing like too
	require.Eventually(t, func() bool {
		return fameOf(t, gdb, 1) == 17 && fameOf(t, gdb, 2) == 17
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUnlikeRecomputesBothSidesOfMatch(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	_, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return fameOf(t, gdb, 1) == 17 && fameOf(t, gdb, 2) == 17
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Unlike(ctx, 1, 2))

	// the match dissolved for both: bob keeps nothing (10), alice keeps
	// bob's like (2 + 10 = 12)
	require.Eventually(t, func() bool {
		return fameOf(t, gdb, 1) == 12 && fameOf(t, gdb, 2) == 10
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMatchAnnouncedOncePerPair(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	_, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	assert.Len(t, notificationsFor(t, gdb, 1, db.NotificationMatch), 1)
	assert.Len(t, notificationsFor(t, gdb, 2, db.NotificationMatch), 1)

	// drop the edges behind the service's back so the announcement claim
	// stays held, the way a racing twin of a like would have left it
	require.NoError(t, gdb.Where("1 = 1").Delete(&db.Like{}).Error)

	_, err = svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	res, err := svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, res.Match)

	// match state is reported but not re-announced
	assert.Len(t, notificationsFor(t, gdb, 1, db.NotificationMatch), 1)
	assert.Len(t, notificationsFor(t, gdb, 2, db.NotificationMatch), 1)

	// a real dissolve releases the claim, so a re-match announces again
	require.NoError(t, svc.Unlike(ctx, 1, 2))
	_, err = svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, notificationsFor(t, gdb, 1, db.NotificationMatch), 2)
	assert.Len(t, notificationsFor(t, gdb, 2, db.NotificationMatch), 2)
}

func TestLikeIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	first, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)

	second, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// repeat like re-notifies nobody
	assert.Len(t, notificationsFor(t, gdb, 2, db.NotificationLike), 1)
}

func TestLikeRejections(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.Like(ctx, 1, 1)
	assert.True(t, apperr.IsKind(err, apperr.KindSelfAction))

	_, err = svc.Like(ctx, 1, 404)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	// carol has no photo
	_, err = svc.Like(ctx, 3, 1)
	assert.True(t, apperr.IsKind(err, apperr.KindPermission))
}

func TestLikeBlockedPair(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	require.NoError(t, svc.Block(ctx, 2, 1))

	// blocked in the other direction too
	_, err := svc.Like(ctx, 1, 2)
	assert.True(t, apperr.IsKind(err, apperr.KindPermission))
}

func TestUnlike(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	err := svc.Unlike(ctx, 1, 2)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	require.NoError(t, svc.Unlike(ctx, 1, 2))

	var count int64
	gdb.Model(&db.Like{}).Count(&count)
	assert.Equal(t, int64(0), count)
	assert.Len(t, notificationsFor(t, gdb, 2, db.NotificationUnlike), 1)
}

func TestBlockIdempotentAndUnblock(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	require.NoError(t, svc.Block(ctx, 1, 2))
	require.NoError(t, svc.Block(ctx, 1, 2))

	require.NoError(t, svc.Unblock(ctx, 1, 2))
	err := svc.Unblock(ctx, 1, 2)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestReport(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	err := svc.Report(ctx, 1, 2, "  ")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	require.NoError(t, svc.Report(ctx, 1, 2, "spam"))

	err = svc.Report(ctx, 1, 2, "spam again")
	assert.True(t, apperr.IsKind(err, apperr.KindDuplicate))
}

func TestRecordView(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	// self view records nothing
	require.NoError(t, svc.RecordView(ctx, 1, 1))
	var count int64
	gdb.Model(&db.ProfileView{}).Count(&count)
	assert.Equal(t, int64(0), count)

	require.NoError(t, svc.RecordView(ctx, 2, 1))
	assert.Len(t, notificationsFor(t, gdb, 1, db.NotificationVisit), 1)

	viewers, err := svc.ListViewers(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, viewers, 1)
	assert.Equal(t, uint64(2), viewers[0].ViewerID)

	require.NoError(t, svc.Block(ctx, 1, 2))
	err = svc.RecordView(ctx, 2, 1)
	assert.True(t, apperr.IsKind(err, apperr.KindPermission))
}

func TestCountLikersCache(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)

	// first read may come from the bumped counter, second from cache; both
	// must agree with the DB
	n, err := svc.CountLikers(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = svc.CountLikers(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestListNewLikersViaService(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)

	// mutual pair: alice is not a "new" liker for bob anymore
	likes, _, err := svc.ListNewLikers(ctx, 2, nil, 10)
	require.NoError(t, err)
	assert.Len(t, likes, 0)

	likes, _, err = svc.ListLikers(ctx, 2, nil, 10)
	require.NoError(t, err)
	require.Len(t, likes, 1)
	assert.Equal(t, uint64(1), likes[0].UserID)
}
