package query

import (
	"context"

	"github.com/habitforge/habitforge/internal/domain/feed"
	"github.com/habitforge/habitforge/internal/domain/shared"
)

// DefaultFeedLimit caps a feed page when the caller does not specify one.
const DefaultFeedLimit = 50

// FeedQuery returns a user's recent feed events, newest first.
type FeedQuery struct {
	feedRepo feed.Repository
}

// NewFeedQuery creates a new FeedQuery.
func NewFeedQuery(feedRepo feed.Repository) *FeedQuery {
	return &FeedQuery{feedRepo: feedRepo}
}

// Execute returns up to limit recent feed events for the user.
func (q *FeedQuery) Execute(ctx context.Context, userID shared.UserID, limit int) ([]*feed.Event, error) {
	if userID.IsEmpty() {
		return nil, shared.ErrMissingUserID
	}
	if limit <= 0 || limit > 200 {
		limit = DefaultFeedLimit
	}

	events, err := q.feedRepo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, shared.WrapError("query", "Feed", shared.ErrExternalService, "failed to list feed events", err)
	}
	return events, nil
}
