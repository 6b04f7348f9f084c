package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heartlink/discovery/internal/compat"
	"github.com/heartlink/discovery/internal/db"
	"github.com/heartlink/discovery/internal/fame"
)

// UserRepository reads users/profiles/locations/tags and owns the single
// normalization point for gender and orientation: rows leave this layer in
// canonical lower-case form, consumers never re-normalize.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

func (r *UserRepository) GetUser(ctx context.Context, id uint64) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetProfile returns the profile with gender/orientation normalized.
func (r *UserRepository) GetProfile(ctx context.Context, userID uint64) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	p.Gender = string(compat.NormalizeGender(p.Gender))
	p.Orientation = string(compat.NormalizeOrientation(p.Orientation))
	return &p, nil
}

// LatestLocation returns the newest location row for a user, or gorm's
// not-found error when the user has never reported one.
func (r *UserRepository) LatestLocation(ctx context.Context, userID uint64) (*db.Location, error) {
	var loc db.Location
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		First(&loc).Error
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// AddLocation appends a location row; history is kept, the newest row wins.
func (r *UserRepository) AddLocation(ctx context.Context, loc *db.Location) error {
	return r.db.WithContext(ctx).Create(loc).Error
}

// SetFameRating replaces the stored fame rating for a user.
func (r *UserRepository) SetFameRating(ctx context.Context, userID uint64, score float64) error {
	return r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("user_id = ?", userID).
		Update("fame_rating", score).Error
}

// TagIDs returns the interest tag ids attached to a user.
func (r *UserRepository) TagIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.UserTag{}).
		Where("user_id = ?", userID).
		Pluck("tag_id", &ids).Error
	return ids, err
}

// AttachTag links a tag to a user; duplicates are no-ops.
func (r *UserRepository) AttachTag(ctx context.Context, userID, tagID uint64) error {
	ut := db.UserTag{UserID: userID, TagID: tagID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ut).Error
}

func (r *UserRepository) DetachTag(ctx context.Context, userID, tagID uint64) error {
	return r.db.WithContext(ctx).
		Delete(&db.UserTag{UserID: userID, TagID: tagID}).Error
}

// FameCounts gathers the aggregate inputs of the fame rating for a user.
// Pure read of current table state, so recomputation from the same state is
// idempotent by construction. Implements fame.Source.
func (r *UserRepository) FameCounts(ctx context.Context, userID uint64) (fame.Counts, error) {
	var c fame.Counts
	tx := r.db.WithContext(ctx)

	if err := tx.Model(&db.ProfileView{}).
		Where("viewed_user_id = ?", userID).
		Count(&c.Views).Error; err != nil {
		return c, err
	}

	if err := tx.Model(&db.Like{}).
		Where("liked_user_id = ?", userID).
		Count(&c.Likes).Error; err != nil {
		return c, err
	}

	if err := tx.Model(&db.Like{}).
		Where("liked_user_id = ?", userID).
		Where(`EXISTS (
			SELECT 1 FROM likes l2
			WHERE l2.user_id = ?
			  AND l2.liked_user_id = likes.user_id
		)`, userID).
		Count(&c.Matches).Error; err != nil {
		return c, err
	}

	if err := tx.Model(&db.Report{}).
		Where("reported_user_id = ?", userID).
		Count(&c.Reports).Error; err != nil {
		return c, err
	}

	var p db.Profile
	if err := tx.Select("photo_count", "bio").
		First(&p, "user_id = ?", userID).Error; err != nil {
		return c, err
	}
	c.Photos = p.PhotoCount
	c.BioLength = len(p.Bio)

	return c, nil
}
