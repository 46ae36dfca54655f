package seed

import (
	"context"
	"fmt"
	"time"

	"ms-attractions/internal/logger"
	"ms-attractions/internal/models"
)

type Catalog interface {
	Create(ctx context.Context, req models.AttractionRequest) (*models.Attraction, error)
	List(ctx context.Context, category string) ([]models.Attraction, error)
}

type Inventory interface {
	OpenTicketDay(ctx context.Context, attractionID, date string, capacity int) (*models.TicketDay, error)
}

// Attractions is the demo catalog loaded into an empty database.
var Attractions = []models.AttractionRequest{
	{
		Name:        "Forbidden City",
		Description: "Imperial palace complex at the centre of Beijing.",
		Category:    "history",
		Tags:        []string{"palace", "museum", "unesco"},
		ImageURL:    "https://images.example.com/forbidden-city.jpg",
	},
	{
		Name:        "Summer Palace",
		Description: "Lakes, gardens and pavilions of the Qing dynasty.",
		Category:    "park",
		Tags:        []string{"garden", "lake", "unesco"},
		ImageURL:    "https://images.example.com/summer-palace.jpg",
	},
	{
		Name:        "National Aquarium",
		Description: "Indoor aquarium with a walk-through shark tunnel.",
		Category:    "family",
		Tags:        []string{"indoor", "kids"},
		ImageURL:    "https://images.example.com/aquarium.jpg",
	},
}

// Run creates the demo attractions and opens ticket days for the next days
// days, starting today in loc. It does nothing when the catalog is not empty.
func Run(ctx context.Context, c Catalog, inv Inventory, loc *time.Location, days, capacity int, log *logger.Logger) (int, error) {
	existing, err := c.List(ctx, "")
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		log.Info("SEED", fmt.Sprintf("Catalog already holds %d attractions, skipping seed", len(existing)))
		return 0, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	today := time.Now().In(loc)
	created := 0
	for _, req := range Attractions {
		a, err := c.Create(ctx, req)
		if err != nil {
			return created, fmt.Errorf("seed attraction %q: %w", req.Name, err)
		}
		created++

		for i := 0; i < days; i++ {
			date := today.AddDate(0, 0, i).Format(models.DateLayout)
			if _, err := inv.OpenTicketDay(ctx, a.ID, date, capacity); err != nil {
				return created, fmt.Errorf("seed tickets %s/%s: %w", a.ID, date, err)
			}
		}
	}

	log.Info("SEED", fmt.Sprintf("Seeded %d attractions with %d ticket days each", created, days))
	return created, nil
}
