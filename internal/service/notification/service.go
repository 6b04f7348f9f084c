package notification

import (
	"context"
	"strconv"

	"github.com/heartlink/discovery/internal/app"
	"github.com/heartlink/discovery/internal/apperr"
	"github.com/heartlink/discovery/internal/db"
	"github.com/heartlink/discovery/internal/repository"
)

const defaultPageSize = 20

// Inbox is one page of a user's notifications plus the unread total.
type Inbox struct {
	Items       []db.Notification
	NextToken   *string
	UnreadCount int64
}

// Service is the pull side of notifications: list, unread count, mark read.
type Service struct {
	appCtx *app.AppContext
	repo   *repository.NotificationRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		repo:   repository.NewNotificationRepository(appCtx.DB),
	}
}

// List returns the user's notifications newest first with the unread count.
// Unread count is cache-first with DB fallback, mirroring the like counter.
func (s *Service) List(ctx context.Context, userID uint64, paginationToken *string, limit int) (*Inbox, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	items, next, err := s.repo.ListByUser(ctx, userID, paginationToken, limit)
	if err != nil {
		return nil, apperr.Wrap(err, "notifications unavailable")
	}

	unread, err := s.unreadCount(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(err, "notifications unavailable")
	}

	return &Inbox{Items: items, NextToken: next, UnreadCount: unread}, nil
}

func (s *Service) unreadCount(ctx context.Context, userID uint64) (int64, error) {
	key := s.appCtx.RedisCache.KeyForUnreadCount(userID)
	if n, hit, err := s.appCtx.RedisCache.GetCount(ctx, key); err == nil && hit {
		return n, nil
	}

	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	_ = s.appCtx.RedisCache.SetCount(ctx, key, count)
	return count, nil
}

// MarkRead flips one notification to read.
func (s *Service) MarkRead(ctx context.Context, id, userID uint64) error {
	updated, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return apperr.Wrap(err, "notification not found")
	}
	if !updated {
		return apperr.NotFound("notification %s not found", strconv.FormatUint(id, 10))
	}
	_ = s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForUnreadCount(userID))
	return nil
}

// MarkAllRead flips every unread notification of the user.
func (s *Service) MarkAllRead(ctx context.Context, userID uint64) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return apperr.Wrap(err, "notifications unavailable")
	}
	_ = s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForUnreadCount(userID))
	return nil
}
