package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heartlink/discovery/internal/db"
	"github.com/heartlink/discovery/internal/utils/pagination"
)

// RelationshipRepository owns the directed edges between user pairs:
// likes, blocks, passes and reports. Every write goes through a single-row
// upsert under the pair's unique constraint, which is what serializes
// concurrent writers per key. No partial edge state is ever observable.
type RelationshipRepository struct {
	db *gorm.DB
}

func NewRelationshipRepository(database *gorm.DB) *RelationshipRepository {
	return &RelationshipRepository{db: database}
}

// UpsertLike inserts the like edge actor -> target.
//
// Behavior:
//   - New pair: the row is inserted and created = true.
//   - Existing pair: insert-or-ignore under the composite PK, created = false.
//     Concurrent likes from the same actor converge to one edge.
func (r *RelationshipRepository) UpsertLike(ctx context.Context, actorID, targetID uint64) (created bool, err error) {
	like := db.Like{UserID: actorID, LikedUserID: targetID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&like)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteLike removes the edge; deleted = false when no edge existed.
func (r *RelationshipRepository) DeleteLike(ctx context.Context, actorID, targetID uint64) (deleted bool, err error) {
	res := r.db.WithContext(ctx).
		Delete(&db.Like{UserID: actorID, LikedUserID: targetID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// HasLike reports whether actor -> target exists.
func (r *RelationshipRepository) HasLike(ctx context.Context, actorID, targetID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("user_id = ? AND liked_user_id = ?", actorID, targetID).
		Count(&count).Error
	return count > 0, err
}

// UpsertBlock inserts the block edge; duplicate blocks are no-op successes.
func (r *RelationshipRepository) UpsertBlock(ctx context.Context, actorID, targetID uint64) error {
	block := db.Block{UserID: actorID, BlockedUserID: targetID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&block).Error
}

// DeleteBlock removes the block edge; deleted = false when none existed.
func (r *RelationshipRepository) DeleteBlock(ctx context.Context, actorID, targetID uint64) (deleted bool, err error) {
	res := r.db.WithContext(ctx).
		Delete(&db.Block{UserID: actorID, BlockedUserID: targetID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IsBlockedEither reports whether a block exists in either direction between
// the two users. Gates discovery, profile views and new likes.
func (r *RelationshipRepository) IsBlockedEither(ctx context.Context, a, b uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("(user_id = ? AND blocked_user_id = ?) OR (user_id = ? AND blocked_user_id = ?)",
			a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// UpsertPass records a discovery skip. Soft signal: refreshes updated_at on
// repeat, never used as a hard discovery filter.
func (r *RelationshipRepository) UpsertPass(ctx context.Context, actorID, targetID uint64) error {
	pass := db.Pass{UserID: actorID, PassedUserID: targetID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "passed_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).
		Create(&pass).Error
}

// CreateReport inserts a report row; created = false when the ordered pair
// was already reported (duplicate attempts are rejected, not overwritten).
func (r *RelationshipRepository) CreateReport(ctx context.Context, reporterID, reportedID uint64, reason string) (created bool, err error) {
	report := db.Report{ReporterID: reporterID, ReportedUserID: reportedID, Reason: reason}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&report)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetLikers returns the users who liked the given recipient, newest first.
//
// Behavior:
//   - Excludes likers the recipient has passed.
//   - Excludes likers with a block in either direction.
//   - Ordered by updated_at DESC, user_id DESC with cursor pagination.
func (r *RelationshipRepository) GetLikers(
	ctx context.Context,
	recipientID uint64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	return r.likers(ctx, recipientID, paginationToken, limit, false)
}

// GetNewLikers returns likers the recipient has not yet liked back.
func (r *RelationshipRepository) GetNewLikers(
	ctx context.Context,
	recipientID uint64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	return r.likers(ctx, recipientID, paginationToken, limit, true)
}

func (r *RelationshipRepository) likers(
	ctx context.Context,
	recipientID uint64,
	paginationToken *string,
	limit int,
	excludeMutual bool,
) ([]db.Like, *string, error) {
	var likes []db.Like

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.liked_user_id = ?", recipientID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM passes p
				WHERE p.user_id = ?
				  AND p.passed_user_id = l.user_id
			)`, recipientID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM blocks b
				WHERE (b.user_id = ? AND b.blocked_user_id = l.user_id)
				   OR (b.user_id = l.user_id AND b.blocked_user_id = ?)
			)`, recipientID, recipientID).
		Order("l.updated_at DESC, l.user_id DESC").
		Limit(limit + 1)

	if excludeMutual {
		query = query.Where(`
			NOT EXISTS (
				SELECT 1 FROM likes l2
				WHERE l2.user_id = l.liked_user_id
				  AND l2.liked_user_id = l.user_id
			)`)
	}

	if cursor.ID > 0 && cursor.UnixMill > 0 {
		ts := time.UnixMilli(cursor.UnixMill)
		query = query.Where(
			"(l.updated_at < ? OR (l.updated_at = ? AND l.user_id < ?))",
			ts, ts, cursor.ID,
		)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:       last.UserID,
			UnixMill: last.UpdatedAt.UnixMilli(),
		})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// CountLikers returns how many users liked the recipient, with the same
// pass/block exclusions as GetLikers. Used behind the Redis counter cache.
func (r *RelationshipRepository) CountLikers(ctx context.Context, recipientID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.liked_user_id = ?", recipientID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM passes p
				WHERE p.user_id = ?
				  AND p.passed_user_id = l.user_id
			)`, recipientID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM blocks b
				WHERE (b.user_id = ? AND b.blocked_user_id = l.user_id)
				   OR (b.user_id = l.user_id AND b.blocked_user_id = ?)
			)`, recipientID, recipientID).
		Count(&count).Error
	return count, err
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
