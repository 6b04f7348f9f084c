package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/heartlink/discovery/internal/db"
)

// ViewRepository owns the append-only profile-view log.
type ViewRepository struct {
	db *gorm.DB
}

func NewViewRepository(database *gorm.DB) *ViewRepository {
	return &ViewRepository{db: database}
}

// CreateView appends a view row. Repeat views by the same viewer create new
// rows; deduplication happens at read time.
func (r *ViewRepository) CreateView(ctx context.Context, viewerID, viewedID uint64) error {
	view := db.ProfileView{ViewerID: viewerID, ViewedUserID: viewedID}
	return r.db.WithContext(ctx).Create(&view).Error
}

// ViewerEntry is one row of "who viewed me": the viewer plus their most
// recent visit time.
type ViewerEntry struct {
	ViewerID uint64
	LastSeen time.Time
}

// ListViewers returns the distinct viewers of a profile, most recent first,
// deduplicated to one entry per viewer. Viewers with a block in either
// direction are hidden.
//
// Dedup picks each viewer's newest row via an anti-join instead of a MAX()
// aggregate, so last_seen is a real column the drivers can scan as a time.
func (r *ViewRepository) ListViewers(ctx context.Context, viewedID uint64, limit int) ([]ViewerEntry, error) {
	var entries []ViewerEntry
	err := r.db.WithContext(ctx).
		Table("profile_views pv").
		Select("pv.viewer_id, pv.created_at AS last_seen").
		Where("pv.viewed_user_id = ?", viewedID).
		Where(`NOT EXISTS (
			SELECT 1 FROM profile_views newer
			WHERE newer.viewed_user_id = pv.viewed_user_id
			  AND newer.viewer_id = pv.viewer_id
			  AND (newer.created_at > pv.created_at
			       OR (newer.created_at = pv.created_at AND newer.id > pv.id))
		)`).
		Where(`NOT EXISTS (
			SELECT 1 FROM blocks b
			WHERE (b.user_id = ? AND b.blocked_user_id = pv.viewer_id)
			   OR (b.user_id = pv.viewer_id AND b.blocked_user_id = ?)
		)`, viewedID, viewedID).
		Order("last_seen DESC, pv.viewer_id DESC").
		Limit(limit).
		Scan(&entries).Error
	return entries, err
}

// CountViews counts all view rows received by a user.
func (r *ViewRepository) CountViews(ctx context.Context, viewedID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.ProfileView{}).
		Where("viewed_user_id = ?", viewedID).
		Count(&count).Error
	return count, err
}
