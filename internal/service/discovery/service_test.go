package discovery_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
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
	"github.com/heartlink/discovery/internal/geo"
	"github.com/heartlink/discovery/internal/service/discovery"
	"github.com/heartlink/discovery/internal/session"
)

type seedSpec struct {
	id          uint64
	username    string
	gender      string
	orientation string
	birthYear   int
	fame        float64
	lat, lon    *float64
	tagIDs      []uint64
}

func f(v float64) *float64 { return &v }

var (
	paris     = [2]*float64{f(48.8566), f(2.3522)}
	lyon      = [2]*float64{f(45.7640), f(4.8357)}
	marseille = [2]*float64{f(43.2965), f(5.3698)}
)

// seedPool builds a deterministic dataset:
//   - 1 viewer:  male straight, Paris, tags {1,2}, born 1994
//   - 2 nearby:  female straight, Paris, tags {1,2}, fame 50, born 1996
//   - 3 further: female gay, Lyon, tag {1}, fame 80, born 1990
//   - 4 faraway: female bisexual, Marseille, no tags, fame 20, born 2002
//   - 5 nomad:   female straight, no location, fame 90, born 1998
//   - 6 male:    filtered out for a straight male viewer
func seedPool(t *testing.T, gdb *gorm.DB) {
	t.Helper()

	specs := []seedSpec{
		{1, "viewer", "male", "straight", 1994, 0, paris[0], paris[1], []uint64{1, 2}},
		{2, "nearby", "female", "straight", 1996, 50, paris[0], paris[1], []uint64{1, 2}},
		{3, "further", "female", "gay", 1990, 80, lyon[0], lyon[1], []uint64{1}},
		{4, "faraway", "female", "bisexual", 2002, 20, marseille[0], marseille[1], nil},
		{5, "nomad", "female", "straight", 1998, 90, nil, nil, nil},
		{6, "fella", "male", "straight", 1995, 60, paris[0], paris[1], nil},
	}

	tags := []db.Tag{{ID: 1, Name: "hiking"}, {ID: 2, Name: "jazz"}}
	require.NoError(t, gdb.Create(&tags).Error)

	for _, s := range specs {
		u := db.User{
			ID: s.id, Username: s.username, Email: s.username + "@test.com",
			PasswordHash: "x", Verified: true, Active: true,
		}
		require.NoError(t, gdb.Create(&u).Error)

		p := db.Profile{
			UserID: s.id, Gender: s.gender, Orientation: s.orientation,
			BirthDate:  time.Date(s.birthYear, 1, 1, 0, 0, 0, 0, time.UTC),
			FameRating: s.fame, PhotoCount: 1,
		}
		require.NoError(t, gdb.Create(&p).Error)

		if s.lat != nil {
			loc := db.Location{UserID: s.id, Latitude: *s.lat, Longitude: *s.lon, Source: db.LocationSourceGPS}
			require.NoError(t, gdb.Create(&loc).Error)
		}
		for _, tagID := range s.tagIDs {
			require.NoError(t, gdb.Create(&db.UserTag{UserID: s.id, TagID: tagID}).Error)
		}
	}
}

func setupService(t *testing.T) *discovery.Service {
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
	seedPool(t, dbase)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool, err := async.New(4, time.Second, log)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	appCtx := app.New(dbase, cache.NewRedisCache(cfg), log, pool, session.NewHub(), geo.NewHTTPGeocoder(cfg))
	return discovery.NewService(appCtx)
}

func ids(page []discovery.CandidateSummary) []uint64 {
	out := make([]uint64, 0, len(page))
	for _, c := range page {
		out = append(out, c.UserID)
	}
	return out
}

func TestCandidatesGenderPredicate(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	// straight male viewer sees only women, never himself or other men
	page, err := svc.Candidates(ctx, 1, discovery.Query{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3, 4, 5}, ids(page))
}

func TestCandidatesDefaultFameOrder(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	page, err := svc.Candidates(ctx, 1, discovery.Query{})
	require.NoError(t, err)
	// fame desc: nomad 90, further 80, nearby 50, faraway 20
	assert.Equal(t, []uint64{5, 3, 2, 4}, ids(page))
}

func TestCandidatesDistanceSort(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	page, err := svc.Candidates(ctx, 1, discovery.Query{Sort: discovery.SortDistance})
	require.NoError(t, err)
	// ascending by default; nomad has no location and lands last
	assert.Equal(t, []uint64{2, 3, 4, 5}, ids(page))
	assert.Nil(t, page[3].DistanceKm)

	// Paris-Lyon is just under 400km
	require.NotNil(t, page[1].DistanceKm)
	assert.InDelta(t, 392, *page[1].DistanceKm, 10)
}

func TestCandidatesMaxDistanceFilter(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	// 100km keeps only the Paris candidate; unknown locations are excluded
	// because they cannot prove they are in range
	page, err := svc.Candidates(ctx, 1, discovery.Query{MaxDistanceKm: 100})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids(page))
}

func TestCandidatesAgeFilter(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	// birthdays are Jan 1 in the seed, so age is a plain year difference
	ageOf1990 := time.Now().UTC().Year() - 1990

	page, err := svc.Candidates(ctx, 1, discovery.Query{AgeMin: ageOf1990, AgeMax: ageOf1990})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, ids(page))
}

func TestCandidatesSharedTagsFilter(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	page, err := svc.Candidates(ctx, 1, discovery.Query{MinSharedTags: 1, Sort: discovery.SortTags})
	require.NoError(t, err)
	// tags desc: nearby shares 2, further shares 1
	assert.Equal(t, []uint64{2, 3}, ids(page))
	assert.Equal(t, 2, page[0].SharedTags)
}

func TestCandidatesPagination(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	page, err := svc.Candidates(ctx, 1, discovery.Query{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 4}, ids(page))

	// offset past the end is a valid empty page
	page, err = svc.Candidates(ctx, 1, discovery.Query{Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestCandidatesGayWomanPredicate(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	// a gay woman's predicate resolves to women only
	page, err := svc.Candidates(ctx, 3, discovery.Query{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 4, 5}, ids(page))
}

func TestCandidatesValidation(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	_, err := svc.Candidates(ctx, 1, discovery.Query{Sort: "charm"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.Candidates(ctx, 1, discovery.Query{AgeMin: 40, AgeMax: 20})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.Candidates(ctx, 1, discovery.Query{Limit: -1})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.Candidates(ctx, 404, discovery.Query{})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
