// Package discovery ranks eligible candidates for a viewer: compatibility
// predicate, filters, ordering policy and pagination.
package discovery

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/heartlink/discovery/internal/app"
	"github.com/heartlink/discovery/internal/apperr"
	"github.com/heartlink/discovery/internal/compat"
	"github.com/heartlink/discovery/internal/geo"
	"github.com/heartlink/discovery/internal/repository"
)

type SortField string

const (
	SortFame     SortField = "fame"
	SortDistance SortField = "distance"
	SortAge      SortField = "age"
	SortTags     SortField = "tags"
)

type SortDir string

const (
	DirAsc  SortDir = "asc"
	DirDesc SortDir = "desc"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Query is one discovery request. Zero values mean "no constraint" except
// Sort, which defaults to fame.
type Query struct {
	AgeMin        int
	AgeMax        int
	MaxDistanceKm float64
	MinFame       float64
	MinSharedTags int
	Sort          SortField
	Dir           SortDir
	Limit         int
	Offset        int
}

// CandidateSummary is one ranked discovery result. Age and distance are
// computed at query time, never stored. DistanceKm is nil when either side
// has no known location.
type CandidateSummary struct {
	UserID     uint64   `json:"user_id"`
	Username   string   `json:"username"`
	Gender     string   `json:"gender"`
	Age        int      `json:"age"`
	Bio        string   `json:"bio"`
	FameRating float64  `json:"fame_rating"`
	SharedTags int      `json:"shared_tags"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

type Service struct {
	appCtx   *app.AppContext
	discRepo *repository.DiscoveryRepository
	userRepo *repository.UserRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		discRepo: repository.NewDiscoveryRepository(appCtx.DB),
		userRepo: repository.NewUserRepository(appCtx.DB),
	}
}

// Candidates returns one page of ranked candidates for the viewer.
//
// Eligibility: the store excludes self, unverified/inactive accounts and
// blocked pairs; the gender set comes from the compatibility predicate (no
// restriction when unresolvable). Age, distance and tag thresholds are then
// applied here, the ordering policy sorts the survivors with a
// created-at-descending tiebreak, and limit/offset slices the page.
//
// An empty page is a valid result. Pages are not snapshot-isolated from each
// other: the pool may shift between calls of a live feed.
func (s *Service) Candidates(ctx context.Context, viewerID uint64, q Query) ([]CandidateSummary, error) {
	if err := normalize(&q); err != nil {
		return nil, err
	}

	viewer, err := s.userRepo.GetProfile(ctx, viewerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Wrap(err, "user not found")
	}

	allowed, resolvable := compat.AllowedGenders(viewer.Gender, viewer.Orientation)
	if resolvable && len(allowed) == 0 {
		return []CandidateSummary{}, nil
	}

	filter := repository.CandidateFilter{}
	if resolvable {
		filter.Genders = compat.Strings(allowed)
	}
	now := time.Now().UTC()
	if q.AgeMin > 0 {
		t := now.AddDate(-q.AgeMin, 0, 0)
		filter.MaxBirth = &t
	}
	if q.AgeMax > 0 {
		t := now.AddDate(-q.AgeMax-1, 0, 0).AddDate(0, 0, 1)
		filter.MinBirth = &t
	}
	if q.MinFame > 0 {
		filter.MinFame = &q.MinFame
	}

	pool, err := s.discRepo.FindCandidates(ctx, viewerID, filter)
	if err != nil {
		return nil, apperr.Wrap(err, "discovery unavailable")
	}

	var viewerLat, viewerLon *float64
	if loc, err := s.userRepo.LatestLocation(ctx, viewerID); err == nil {
		viewerLat, viewerLon = &loc.Latitude, &loc.Longitude
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(err, "discovery unavailable")
	}

	type ranked struct {
		repository.Candidate
		age      int
		distance *float64
	}

	results := make([]ranked, 0, len(pool))
	for _, c := range pool {
		rc := ranked{Candidate: c, age: ageOf(c.BirthDate, now)}

		if viewerLat != nil && c.Latitude != nil && c.Longitude != nil {
			d := geo.DistanceKm(*viewerLat, *viewerLon, *c.Latitude, *c.Longitude)
			rc.distance = &d
		}

		if q.MaxDistanceKm > 0 && (rc.distance == nil || *rc.distance > q.MaxDistanceKm) {
			continue
		}
		if q.MinSharedTags > 0 && c.SharedTags < q.MinSharedTags {
			continue
		}

		results = append(results, rc)
	}

	asc := q.Dir == DirAsc
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		var cmp int
		switch q.Sort {
		case SortDistance:
			cmp = compareDistance(a.distance, b.distance)
		case SortAge:
			cmp = compareInt(a.age, b.age)
		case SortTags:
			cmp = compareInt(a.SharedTags, b.SharedTags)
		default: // fame
			cmp = compareFloat(a.FameRating, b.FameRating)
		}
		if !asc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp < 0
		}
		// deterministic tiebreak: most-recently-joined first, then id
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.UserID > b.UserID
	})

	if q.Offset >= len(results) {
		return []CandidateSummary{}, nil
	}
	end := q.Offset + q.Limit
	if end > len(results) {
		end = len(results)
	}

	page := make([]CandidateSummary, 0, end-q.Offset)
	for _, rc := range results[q.Offset:end] {
		page = append(page, CandidateSummary{
			UserID:     rc.UserID,
			Username:   rc.Username,
			Gender:     rc.Gender,
			Age:        rc.age,
			Bio:        rc.Bio,
			FameRating: rc.FameRating,
			SharedTags: rc.SharedTags,
			DistanceKm: rc.distance,
		})
	}
	return page, nil
}

// normalize validates the query and fills defaults. Rejections happen before
// any storage work.
func normalize(q *Query) error {
	if q.Limit < 0 || q.Offset < 0 {
		return apperr.Validation("limit and offset must be non-negative")
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.AgeMin < 0 || q.AgeMax < 0 {
		return apperr.Validation("age bounds must be non-negative")
	}
	if q.AgeMin > 0 && q.AgeMax > 0 && q.AgeMin > q.AgeMax {
		return apperr.Validation("age_min must not exceed age_max")
	}
	if q.MaxDistanceKm < 0 {
		return apperr.Validation("max_distance_km must be non-negative")
	}

	switch q.Sort {
	case "":
		q.Sort = SortFame
	case SortFame, SortDistance, SortAge, SortTags:
	default:
		return apperr.Validation("sort must be one of fame, distance, age, tags")
	}

	switch q.Dir {
	case "":
		// natural defaults: best-first
		if q.Sort == SortDistance || q.Sort == SortAge {
			q.Dir = DirAsc
		} else {
			q.Dir = DirDesc
		}
	case DirAsc, DirDesc:
	default:
		return apperr.Validation("dir must be asc or desc")
	}
	return nil
}

// ageOf compares calendar month and day rather than year-days, which drift by
// one across leap years.
func ageOf(birth time.Time, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareDistance treats unknown distances as larger than any known one so
// they land last under the ascending default.
func compareDistance(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return compareFloat(*a, *b)
}
