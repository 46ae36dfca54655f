package attractions

import (
	"context"
	"fmt"

	"ms-attractions/internal/logger"
	"ms-attractions/internal/models"
)

type Catalog interface {
	Create(ctx context.Context, req models.AttractionRequest) (*models.Attraction, error)
	Update(ctx context.Context, id string, req models.AttractionRequest) (*models.Attraction, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Attraction, error)
	List(ctx context.Context, category string) ([]models.Attraction, error)
	GetAttractions(ctx context.Context, ids []string) (map[string]models.Attraction, error)
}

type Inventory interface {
	ListTicketDays(ctx context.Context, attractionID string) ([]models.TicketDay, error)
	RemoveAttraction(ctx context.Context, attractionID string, detach func(ctx context.Context) error) error
}

type Engagement interface {
	GetAggregate(ctx context.Context, attractionID string) (models.EngagementAggregate, error)
	Aggregates(ctx context.Context, attractionIDs []string) (map[string]models.EngagementAggregate, error)
	FavoriteIDs(ctx context.Context, userID string) ([]string, error)
	RemoveAttraction(ctx context.Context, attractionID string) error
}

// Service joins catalog metadata with inventory and engagement for the read
// views, and removes an attraction from all three on delete.
type Service struct {
	Catalog    Catalog
	Inventory  Inventory
	Engagement Engagement
	Logger     *logger.Logger
}

func NewService(c Catalog, inv Inventory, eng Engagement, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{Catalog: c, Inventory: inv, Engagement: eng, Logger: log}
}

func (s *Service) Create(ctx context.Context, req models.AttractionRequest) (*models.Attraction, error) {
	return s.Catalog.Create(ctx, req)
}

func (s *Service) Update(ctx context.Context, id string, req models.AttractionRequest) (*models.Attraction, error) {
	return s.Catalog.Update(ctx, id, req)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Attraction, error) {
	return s.Catalog.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, category string) ([]models.AttractionSummary, error) {
	list, err := s.Catalog.List(ctx, category)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	aggs, err := s.Engagement.Aggregates(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.AttractionSummary, len(list))
	for i, a := range list {
		out[i] = models.AttractionSummary{Attraction: a, Engagements: aggs[a.ID]}
	}
	return out, nil
}

// Detail embeds the engagement counters and the ticket days ordered by date.
func (s *Service) Detail(ctx context.Context, id string) (*models.AttractionDetail, error) {
	a, err := s.Catalog.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	agg, err := s.Engagement.GetAggregate(ctx, id)
	if err != nil {
		return nil, err
	}
	days, err := s.Inventory.ListTicketDays(ctx, id)
	if err != nil {
		return nil, err
	}

	tickets := make([]models.TicketDayView, len(days))
	for i, d := range days {
		tickets[i] = d.View()
	}
	return &models.AttractionDetail{Attraction: *a, Engagements: agg, Tickets: tickets}, nil
}

// Delete is refused while any ticket day still has active reservations.
// The catalog row goes first, under the inventory locks, so no day can be
// opened or reserved for the attraction once it is gone. Empty ticket days and
// engagement state go with it.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Catalog.Get(ctx, id); err != nil {
		return err
	}
	err := s.Inventory.RemoveAttraction(ctx, id, func(ctx context.Context) error {
		if err := s.Catalog.Delete(ctx, id); err != nil {
			return err
		}
		if err := s.Engagement.RemoveAttraction(ctx, id); err != nil {
			s.Logger.Warn("CATALOG", fmt.Sprintf("Engagement of removed attraction %s was kept: %v", id, err))
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Attraction %s removed with its inventory and engagement", id))
	return nil
}

// Favorites lists the attractions the user favorited, most recent first.
// Attractions deleted since are skipped.
func (s *Service) Favorites(ctx context.Context, userID string) ([]models.Attraction, error) {
	ids, err := s.Engagement.FavoriteIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	found, err := s.Catalog.GetAttractions(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.Attraction, 0, len(ids))
	for _, id := range ids {
		if a, ok := found[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}
