package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/heartlink/discovery/internal/db"
	"github.com/heartlink/discovery/internal/utils/pagination"
)

// NotificationRepository persists and reads notification rows. Rows are never
// deleted by normal flow; reads are per-user in descending creation order.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(database *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: database}
}

func (r *NotificationRepository) Create(ctx context.Context, n *db.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ListByUser returns the user's notifications newest first with cursor
// pagination on (created_at, id).
func (r *NotificationRepository) ListByUser(
	ctx context.Context,
	userID uint64,
	paginationToken *string,
	limit int,
) ([]db.Notification, *string, error) {
	var items []db.Notification

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if cursor.ID > 0 && cursor.UnixMill > 0 {
		ts := time.UnixMilli(cursor.UnixMill)
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.ID,
		)
	}

	if err := query.Find(&items).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(items) > limit {
		last := items[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:       last.ID,
			UnixMill: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		items = items[:limit]
	}

	return items, nextToken, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("user_id = ? AND `read` = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips one notification to read; updated = false when the id does
// not belong to the user or does not exist.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uint64) (updated bool, err error) {
	res := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("user_id = ? AND `read` = ?", userID, false).
		Update("read", true).Error
}
