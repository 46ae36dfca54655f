package engagement

import (
	"context"

	"ms-attractions/internal/models"
)

// DBLayer is the engagement storage. Lookups return (nil, nil) when nothing matches.
type DBLayer interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx DBLayer) error) error

	GetUserState(ctx context.Context, attractionID, userID string) (*models.EngagementUserState, error)
	UpsertUserState(ctx context.Context, state *models.EngagementUserState) error
	ListFavoritedAttractionIDs(ctx context.Context, userID string) ([]string, error)

	EnsureAggregate(ctx context.Context, attractionID string) error
	AdjustAggregate(ctx context.Context, attractionID string, likes, favorites, shares int) error
	GetAggregate(ctx context.Context, attractionID string) (*models.EngagementAggregate, error)
	ListAggregates(ctx context.Context, attractionIDs []string) ([]models.EngagementAggregate, error)

	DeleteAttraction(ctx context.Context, attractionID string) error
}

// AttractionChecker confirms an attraction exists before engagement is recorded for it.
type AttractionChecker interface {
	AttractionExists(ctx context.Context, attractionID string) (bool, error)
}
