package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/pkg/logger"
)

// CachedLedgerRepository decorates a LedgerRepository with a Redis cache for
// TotalForUser. The ledger stays the source of truth: every append
// invalidates the cached total, and a miss recomputes from the ledger sum.
// Cache failures degrade to the underlying repository, never to an error.
type CachedLedgerRepository struct {
	inner gamification.LedgerRepository
	cache *Cache
	log   *logger.Logger
}

// NewCachedLedgerRepository wraps a ledger repository with the totals cache.
func NewCachedLedgerRepository(inner gamification.LedgerRepository, cache *Cache, log *logger.Logger) *CachedLedgerRepository {
	if log == nil {
		log = logger.Default()
	}
	return &CachedLedgerRepository{
		inner: inner,
		cache: cache,
		log:   log.With(logger.Component("ledger_cache")),
	}
}

// Append writes through to the ledger and invalidates the cached total.
// Invalidation, not increment: a lost increment would silently drift, a lost
// invalidation only costs one recompute.
func (r *CachedLedgerRepository) Append(ctx context.Context, entry *gamification.LedgerEntry) error {
	if err := r.inner.Append(ctx, entry); err != nil {
		return err
	}

	if err := r.cache.Delete(ctx, totalXPKey(entry.UserID)); err != nil {
		r.log.Warn("total XP cache invalidation failed",
			logger.UserID(entry.UserID.String()),
			logger.Err(err))
	}

	return nil
}

// TotalForUser returns the cached total, recomputing from the ledger on miss.
func (r *CachedLedgerRepository) TotalForUser(ctx context.Context, userID shared.UserID) (shared.XP, error) {
	key := totalXPKey(userID)

	cached, err := r.cache.GetString(ctx, key)
	if err == nil {
		if total, parseErr := strconv.Atoi(cached); parseErr == nil {
			return shared.XP(total), nil
		}
		// Unparseable value: drop it and recompute.
		_ = r.cache.Delete(ctx, key)
	} else if !errors.Is(err, ErrCacheMiss) {
		r.log.Warn("total XP cache read failed",
			logger.UserID(userID.String()),
			logger.Err(err))
	}

	total, err := r.inner.TotalForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	if err := r.cache.SetString(ctx, key, strconv.Itoa(total.Int()), TTLTotalXP); err != nil {
		r.log.Warn("total XP cache write failed",
			logger.UserID(userID.String()),
			logger.Err(err))
	}

	return total, nil
}

// ListRecent delegates to the underlying repository.
func (r *CachedLedgerRepository) ListRecent(ctx context.Context, userID shared.UserID, limit int) ([]*gamification.LedgerEntry, error) {
	return r.inner.ListRecent(ctx, userID, limit)
}

func totalXPKey(userID shared.UserID) string {
	return PrefixTotalXP + string(userID)
}
