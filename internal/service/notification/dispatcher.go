package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/heartlink/discovery/internal/app"
	"github.com/heartlink/discovery/internal/db"
	"github.com/heartlink/discovery/internal/repository"
)

// Event is a relationship-graph state change addressed to one user.
type Event struct {
	TargetUserID uint64
	FromUserID   uint64
	Type         string // db.Notification* constant
	Content      string
}

// pushPayload is what live sessions receive over the socket.
type pushPayload struct {
	ID         uint64    `json:"id"`
	Type       string    `json:"type"`
	FromUserID uint64    `json:"from_user_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Dispatcher persists notification rows and pushes them to live sessions.
//
// The row is the source of truth: it is written synchronously so the pull API
// sees it immediately. Push is fire-and-forget on the worker pool; a
// disconnected target never blocks or fails the triggering action.
type Dispatcher struct {
	appCtx *app.AppContext
	repo   *repository.NotificationRepository
}

func NewDispatcher(appCtx *app.AppContext) *Dispatcher {
	return &Dispatcher{
		appCtx: appCtx,
		repo:   repository.NewNotificationRepository(appCtx.DB),
	}
}

// Dispatch stores the notification and schedules best-effort delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	n := &db.Notification{
		UserID:     ev.TargetUserID,
		FromUserID: ev.FromUserID,
		Type:       ev.Type,
		Content:    ev.Content,
	}
	if err := d.repo.Create(ctx, n); err != nil {
		return err
	}

	// keep the cached unread counter warm
	key := d.appCtx.RedisCache.KeyForUnreadCount(ev.TargetUserID)
	_ = d.appCtx.RedisCache.BumpCount(ctx, key, 1)

	d.appCtx.Pool.Go(func(ctx context.Context) {
		payload, err := json.Marshal(pushPayload{
			ID:         n.ID,
			Type:       n.Type,
			FromUserID: n.FromUserID,
			Content:    n.Content,
			CreatedAt:  n.CreatedAt,
		})
		if err != nil {
			d.appCtx.Logger.Error("failed to encode push payload", "err", err)
			return
		}
		delivered := d.appCtx.Sessions.SendToUser(ev.TargetUserID, payload)
		d.appCtx.Logger.Debug("notification push",
			"user_id", ev.TargetUserID, "type", ev.Type, "sessions", delivered)
	})

	return nil
}
