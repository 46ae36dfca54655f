package models

import (
	"time"

	"github.com/uptrace/bun"
)

// EngagementAggregate holds the per-attraction counters.
type EngagementAggregate struct {
	bun.BaseModel `bun:"table:engagement_aggregates"`

	AttractionID string `bun:"attraction_id,pk" json:"attractionId"`
	Likes        int    `bun:"likes,notnull" json:"likes"`
	Favorites    int    `bun:"favorites,notnull" json:"favorites"`
	Shares       int    `bun:"shares,notnull" json:"shares"`
}

// EngagementUserState holds one user's flags for one attraction.
type EngagementUserState struct {
	bun.BaseModel `bun:"table:engagement_user_states"`

	UserID       string    `bun:"user_id,pk" json:"userId"`
	AttractionID string    `bun:"attraction_id,pk" json:"attractionId"`
	Liked        bool      `bun:"liked,notnull" json:"isLiked"`
	Favorited    bool      `bun:"favorited,notnull" json:"isFavorited"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// EngagementResult is returned by every engagement mutation.
type EngagementResult struct {
	AttractionID string              `json:"attractionId"`
	Liked        bool                `json:"isLiked"`
	Favorited    bool                `json:"isFavorited"`
	Aggregate    EngagementAggregate `json:"engagements"`
}

type UserEngagementState struct {
	AttractionID string `json:"attractionId"`
	Liked        bool   `json:"isLiked"`
	Favorited    bool   `json:"isFavorited"`
}
