package service

import (
	"context"

	"github.com/doby176/light/internal/domain/models"
)

// QuoteProvider returns the quote for the current market date.
type QuoteProvider interface {
	Get(ctx context.Context) (models.Quote, error)
}

// QuoteFetcher performs one live scrape.
type QuoteFetcher interface {
	Fetch(ctx context.Context) (models.Quote, error)
}

// ActionLimiter counts one action for id against its budget.
type ActionLimiter interface {
	Allow(ctx context.Context, id string) (models.LimitDecision, error)
	Status(ctx context.Context, id string) (models.LimitStatus, error)
	Name() string
}
