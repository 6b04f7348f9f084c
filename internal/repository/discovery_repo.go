package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/heartlink/discovery/internal/compat"
)

// Candidate is a discovery pool row: user + profile joined with the newest
// location and the shared-tag count against the viewer, all computed by the
// store in one pass. Gender arrives canonical (see CandidateFilter).
type Candidate struct {
	UserID      uint64
	Username    string
	Gender      string
	Orientation string
	BirthDate   time.Time
	Bio         string
	FameRating  float64
	SharedTags  int
	Latitude    *float64
	Longitude   *float64
	CreatedAt   time.Time
}

// CandidateFilter is what the store can pre-filter cheaply. Distance and tag
// thresholds are applied by the ranker because they need the viewer's newest
// coordinates in play.
type CandidateFilter struct {
	Genders  []string // empty = no gender restriction (unresolvable predicate)
	MinBirth *time.Time
	MaxBirth *time.Time
	MinFame  *float64
}

// DiscoveryRepository produces the candidate pool for a viewer.
type DiscoveryRepository struct {
	db *gorm.DB
}

func NewDiscoveryRepository(database *gorm.DB) *DiscoveryRepository {
	return &DiscoveryRepository{db: database}
}

// FindCandidates returns every user eligible to be ranked for the viewer.
//
// Always excluded here, regardless of caller filters:
//   - the viewer themself
//   - unverified or inactive accounts
//   - accounts with a block in either direction
//
// The newest location per candidate and the shared-tag count against the
// viewer are selected via correlated subqueries so the ranker gets them for
// free. Read-only: runs with normal read consistency, no locking.
func (r *DiscoveryRepository) FindCandidates(ctx context.Context, viewerID uint64, f CandidateFilter) ([]Candidate, error) {
	query := r.db.WithContext(ctx).
		Table("users u").
		Select(`u.id AS user_id,
			u.username,
			p.gender,
			p.orientation,
			p.birth_date,
			p.bio,
			p.fame_rating,
			u.created_at,
			(SELECT l.latitude  FROM locations l WHERE l.user_id = u.id ORDER BY l.updated_at DESC, l.id DESC LIMIT 1) AS latitude,
			(SELECT l.longitude FROM locations l WHERE l.user_id = u.id ORDER BY l.updated_at DESC, l.id DESC LIMIT 1) AS longitude,
			(SELECT COUNT(*) FROM user_tags ut
				WHERE ut.user_id = u.id
				  AND ut.tag_id IN (SELECT vt.tag_id FROM user_tags vt WHERE vt.user_id = ?)) AS shared_tags`,
			viewerID).
		Joins("JOIN profiles p ON p.user_id = u.id").
		Where("u.id <> ?", viewerID).
		Where("u.verified = ?", true).
		Where("u.active = ?", true).
		Where(`NOT EXISTS (
			SELECT 1 FROM blocks b
			WHERE (b.user_id = ? AND b.blocked_user_id = u.id)
			   OR (b.user_id = u.id AND b.blocked_user_id = ?)
		)`, viewerID, viewerID)

	if len(f.Genders) > 0 {
		query = query.Where("p.gender IN ?", f.Genders)
	}
	if f.MinBirth != nil {
		query = query.Where("p.birth_date >= ?", *f.MinBirth)
	}
	if f.MaxBirth != nil {
		query = query.Where("p.birth_date <= ?", *f.MaxBirth)
	}
	if f.MinFame != nil {
		query = query.Where("p.fame_rating >= ?", *f.MinFame)
	}

	var rows []Candidate
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].Gender = string(compat.NormalizeGender(rows[i].Gender))
		rows[i].Orientation = string(compat.NormalizeOrientation(rows[i].Orientation))
	}
	return rows, nil
}
