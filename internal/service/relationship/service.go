// Package relationship implements the like/match/block/report state machine
// between user pairs, and the profile-view log that feeds "who viewed me".
// All transitions are idempotent where the product demands it and serialized
// per ordered pair by unique constraints at the storage boundary.
package relationship

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/heartlink/discovery/internal/app"
	"github.com/heartlink/discovery/internal/apperr"
	"github.com/heartlink/discovery/internal/db"
	"github.com/heartlink/discovery/internal/fame"
	"github.com/heartlink/discovery/internal/repository"
	"github.com/heartlink/discovery/internal/service/notification"
)

// LikeResult reports the state of the pair after a like.
type LikeResult struct {
	Liked bool `json:"is_liked"`
	Match bool `json:"is_match"`
}

type Service struct {
	appCtx     *app.AppContext
	relRepo    *repository.RelationshipRepository
	userRepo   *repository.UserRepository
	viewRepo   *repository.ViewRepository
	dispatcher *notification.Dispatcher
	fame       *fame.Aggregator
}

func NewService(appCtx *app.AppContext, dispatcher *notification.Dispatcher, aggregator *fame.Aggregator) *Service {
	return &Service{
		appCtx:     appCtx,
		relRepo:    repository.NewRelationshipRepository(appCtx.DB),
		userRepo:   repository.NewUserRepository(appCtx.DB),
		viewRepo:   repository.NewViewRepository(appCtx.DB),
		dispatcher: dispatcher,
		fame:       aggregator,
	}
}

// Like creates the directed like edge actor -> target.
//
// Behavior:
//   - Self-likes and unknown targets are rejected.
//   - Actors without a profile photo cannot like (quality gate), and blocked
//     pairs cannot like in either direction.
//   - Idempotent: liking an already-liked user succeeds and returns the same
//     result as the first call, without re-notifying anyone.
//   - A fresh like that completes a mutual pair emits one MATCH notification
//     to each side; otherwise a LIKE notification goes to the target only.
func (s *Service) Like(ctx context.Context, actorID, targetID uint64) (*LikeResult, error) {
	if actorID == targetID {
		return nil, apperr.SelfAction("cannot like yourself")
	}

	target, err := s.userRepo.GetUser(ctx, targetID)
	if err != nil {
		return nil, apperr.Wrap(err, "user not found")
	}

	actorProfile, err := s.userRepo.GetProfile(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Permission("add a profile photo before liking")
		}
		return nil, apperr.Wrap(err, "user not found")
	}
	if actorProfile.PhotoCount == 0 {
		return nil, apperr.Permission("add a profile photo before liking")
	}

	blocked, err := s.relRepo.IsBlockedEither(ctx, actorID, targetID)
	if err != nil {
		return nil, apperr.Wrap(err, "user not found")
	}
	if blocked {
		return nil, apperr.Permission("cannot like this user")
	}

	created, err := s.relRepo.UpsertLike(ctx, actorID, targetID)
	if err != nil {
		return nil, apperr.Wrap(err, "user not found")
	}

	mutual, err := s.relRepo.HasLike(ctx, targetID, actorID)
	if err != nil {
		return nil, apperr.Wrap(err, "user not found")
	}

	if created {
		key := s.appCtx.RedisCache.KeyForLikeCount(targetID)
		_ = s.appCtx.RedisCache.BumpCount(ctx, key, 1)

		actor, err := s.userRepo.GetUser(ctx, actorID)
		if err != nil {
			return nil, apperr.Wrap(err, "user not found")
		}

		if mutual {
			// exactly one MATCH per side even when two likes race to
			// complete the pair: the claim winner announces
			claimed, err := s.appCtx.RedisCache.ClaimMatchNotice(ctx, actorID, targetID)
			if err != nil {
				claimed = true
			}
			if claimed {
				s.emit(ctx, notification.Event{
					TargetUserID: targetID, FromUserID: actorID,
					Type:    db.NotificationMatch,
					Content: fmt.Sprintf("You matched with %s", actor.Username),
				})
				s.emit(ctx, notification.Event{
					TargetUserID: actorID, FromUserID: targetID,
					Type:    db.NotificationMatch,
					Content: fmt.Sprintf("You matched with %s", target.Username),
				})
			}
		} else {
			s.emit(ctx, notification.Event{
				TargetUserID: targetID, FromUserID: actorID,
				Type:    db.NotificationLike,
				Content: fmt.Sprintf("%s liked your profile", actor.Username),
			})
		}

		s.fame.RecomputeAsync(targetID)
		if mutual {
			// the actor's own match count changed too: the pre-existing
			// reverse edge just became mutual
			s.fame.RecomputeAsync(actorID)
		}
	}

	return &LikeResult{Liked: true, Match: mutual}, nil
}

// Unlike removes the like edge actor -> target. If the pair was matched the
// match dissolves implicitly: there is no separate unmatch event, consumers
// infer dissolution from the absence of mutual edges.
func (s *Service) Unlike(ctx context.Context, actorID, targetID uint64) error {
	if actorID == targetID {
		return apperr.SelfAction("cannot unlike yourself")
	}

	// the reverse edge survives the unlike; its presence means a match is
	// dissolving and both sides' match counts change
	wasMutual, err := s.relRepo.HasLike(ctx, targetID, actorID)
	if err != nil {
		return apperr.Wrap(err, "like not found")
	}

	deleted, err := s.relRepo.DeleteLike(ctx, actorID, targetID)
	if err != nil {
		return apperr.Wrap(err, "like not found")
	}
	if !deleted {
		return apperr.NotFound("like not found")
	}

	key := s.appCtx.RedisCache.KeyForLikeCount(targetID)
	_ = s.appCtx.RedisCache.BumpCount(ctx, key, -1)

	s.emit(ctx, notification.Event{
		TargetUserID: targetID, FromUserID: actorID,
		Type:    db.NotificationUnlike,
		Content: "Someone removed their like",
	})

	s.fame.RecomputeAsync(targetID)
	if wasMutual {
		_ = s.appCtx.RedisCache.ReleaseMatchNotice(ctx, actorID, targetID)
		s.fame.RecomputeAsync(actorID)
	}
	return nil
}

// Block gates all future discovery and profile-view operations between the
// pair. Idempotent: blocking twice is a no-op success. Existing like edges
// are left in place (non-cascading; see DESIGN.md).
func (s *Service) Block(ctx context.Context, actorID, targetID uint64) error {
	if actorID == targetID {
		return apperr.SelfAction("cannot block yourself")
	}

	if _, err := s.userRepo.GetUser(ctx, targetID); err != nil {
		return apperr.Wrap(err, "user not found")
	}

	if err := s.relRepo.UpsertBlock(ctx, actorID, targetID); err != nil {
		return apperr.Wrap(err, "user not found")
	}
	return nil
}

// Unblock removes a block edge.
func (s *Service) Unblock(ctx context.Context, actorID, targetID uint64) error {
	deleted, err := s.relRepo.DeleteBlock(ctx, actorID, targetID)
	if err != nil {
		return apperr.Wrap(err, "block not found")
	}
	if !deleted {
		return apperr.NotFound("block not found")
	}
	return nil
}

// Report files a report against a user. At most one per ordered pair.
func (s *Service) Report(ctx context.Context, reporterID, reportedID uint64, reason string) error {
	if reporterID == reportedID {
		return apperr.SelfAction("cannot report yourself")
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperr.Validation("reason is required")
	}

	if _, err := s.userRepo.GetUser(ctx, reportedID); err != nil {
		return apperr.Wrap(err, "user not found")
	}

	created, err := s.relRepo.CreateReport(ctx, reporterID, reportedID, reason)
	if err != nil {
		return apperr.Wrap(err, "user not found")
	}
	if !created {
		return apperr.Duplicate("you already reported this user")
	}

	s.fame.RecomputeAsync(reportedID)
	return nil
}

// Pass records a discovery skip. Soft signal only: passed users may surface
// again.
func (s *Service) Pass(ctx context.Context, actorID, targetID uint64) error {
	if actorID == targetID {
		return apperr.SelfAction("cannot pass on yourself")
	}

	if err := s.relRepo.UpsertPass(ctx, actorID, targetID); err != nil {
		return apperr.Wrap(err, "user not found")
	}
	return nil
}

// RecordView appends to the profile-view log and notifies the viewed user.
// Viewing your own profile records nothing. Blocked pairs cannot view.
func (s *Service) RecordView(ctx context.Context, viewerID, viewedID uint64) error {
	if viewerID == viewedID {
		return nil
	}

	blocked, err := s.relRepo.IsBlockedEither(ctx, viewerID, viewedID)
	if err != nil {
		return apperr.Wrap(err, "user not found")
	}
	if blocked {
		return apperr.Permission("cannot view this profile")
	}

	if err := s.viewRepo.CreateView(ctx, viewerID, viewedID); err != nil {
		return apperr.Wrap(err, "user not found")
	}

	key := s.appCtx.RedisCache.KeyForViewCount(viewedID)
	_ = s.appCtx.RedisCache.BumpCount(ctx, key, 1)

	s.emit(ctx, notification.Event{
		TargetUserID: viewedID, FromUserID: viewerID,
		Type:    db.NotificationVisit,
		Content: "Someone viewed your profile",
	})

	s.fame.RecomputeAsync(viewedID)
	return nil
}

// ListViewers returns "who viewed me", one entry per viewer, newest first.
func (s *Service) ListViewers(ctx context.Context, userID uint64, limit int) ([]repository.ViewerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	entries, err := s.viewRepo.ListViewers(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Wrap(err, "views unavailable")
	}
	return entries, nil
}

// ListLikers returns who liked the user, newest first, cursor-paginated.
func (s *Service) ListLikers(ctx context.Context, userID uint64, token *string, limit int) ([]db.Like, *string, error) {
	likes, next, err := s.relRepo.GetLikers(ctx, userID, token, limit)
	if err != nil {
		return nil, nil, apperr.Wrap(err, "likes unavailable")
	}
	return likes, next, nil
}

// ListNewLikers returns likers not yet liked back.
func (s *Service) ListNewLikers(ctx context.Context, userID uint64, token *string, limit int) ([]db.Like, *string, error) {
	likes, next, err := s.relRepo.GetNewLikers(ctx, userID, token, limit)
	if err != nil {
		return nil, nil, apperr.Wrap(err, "likes unavailable")
	}
	return likes, next, nil
}

// CountLikers returns how many users liked the recipient.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:userID).
//  2. On cache miss, falls back to the DB and repopulates the cache.
func (s *Service) CountLikers(ctx context.Context, userID uint64) (int64, error) {
	key := s.appCtx.RedisCache.KeyForLikeCount(userID)
	if n, hit, err := s.appCtx.RedisCache.GetCount(ctx, key); err == nil && hit {
		return n, nil
	}

	count, err := s.relRepo.CountLikers(ctx, userID)
	if err != nil {
		return 0, apperr.Wrap(err, "likes unavailable")
	}
	_ = s.appCtx.RedisCache.SetCount(ctx, key, count)
	return count, nil
}

// emit hands an event to the dispatcher. Notification persistence is
// best-effort relative to the edge mutation that already committed; failures
// are logged, never propagated.
func (s *Service) emit(ctx context.Context, ev notification.Event) {
	if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
		s.appCtx.Logger.Error("notification dispatch failed",
			"target", ev.TargetUserID, "type", ev.Type, "err", err)
	}
}
