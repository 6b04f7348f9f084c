// Package fame derives the popularity score used by ranking and the
// minimum-quality discovery filter. The score is a pure function of aggregate
// counts; recomputation is asynchronous and eventually consistent with the
// action that triggered it.
package fame

import (
	"context"
	"log/slog"
	"math"

	"github.com/heartlink/discovery/internal/async"
)

// Weights of each aggregate input. Reports drag the score down; the
// completeness bonus rewards having photos and a real bio.
const (
	viewWeight     = 0.5
	likeWeight     = 2
	matchWeight    = 5
	reportWeight   = -10
	photoBonus     = 10
	maxBioBonus    = 10
	bioBonusPerRun = 25 // characters of bio per bonus point
)

// Counts are the aggregate inputs of a user's fame rating.
type Counts struct {
	Views     int64
	Likes     int64
	Matches   int64
	Reports   int64
	Photos    int
	BioLength int
}

// Score computes the fame rating from aggregate counts. Deterministic and
// idempotent: same counts, same score. Floored at zero.
func Score(c Counts) float64 {
	s := viewWeight*float64(c.Views) +
		likeWeight*float64(c.Likes) +
		matchWeight*float64(c.Matches) +
		reportWeight*float64(c.Reports)

	if c.Photos > 0 {
		s += photoBonus
	}
	s += math.Min(maxBioBonus, float64(c.BioLength/bioBonusPerRun))

	return math.Max(0, math.Round(s*100)/100)
}

// Source loads the aggregate counts for a user.
type Source interface {
	FameCounts(ctx context.Context, userID uint64) (Counts, error)
}

// Store persists the recomputed rating.
type Store interface {
	SetFameRating(ctx context.Context, userID uint64, score float64) error
}

// Aggregator recomputes fame ratings off the hot path.
type Aggregator struct {
	src   Source
	store Store
	pool  *async.Pool
	log   *slog.Logger
}

func NewAggregator(src Source, store Store, pool *async.Pool, log *slog.Logger) *Aggregator {
	return &Aggregator{src: src, store: store, pool: pool, log: log}
}

// Recompute loads counts, scores them and stores the result.
func (a *Aggregator) Recompute(ctx context.Context, userID uint64) (float64, error) {
	counts, err := a.src.FameCounts(ctx, userID)
	if err != nil {
		return 0, err
	}
	score := Score(counts)
	if err := a.store.SetFameRating(ctx, userID, score); err != nil {
		return 0, err
	}
	return score, nil
}

// RecomputeAsync schedules a recompute on the pool. The triggering action
// never waits on it; a failure is logged and retried once.
func (a *Aggregator) RecomputeAsync(userID uint64) {
	a.pool.Go(func(ctx context.Context) {
		_, err := a.Recompute(ctx, userID)
		if err == nil {
			return
		}
		a.log.Warn("fame recompute failed, retrying", "user_id", userID, "err", err)
		if _, err := a.Recompute(ctx, userID); err != nil {
			a.log.Error("fame recompute failed", "user_id", userID, "err", err)
		}
	})
}
