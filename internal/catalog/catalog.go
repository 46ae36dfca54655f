package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-attractions/internal/apperr"
	"ms-attractions/internal/logger"
	"ms-attractions/internal/models"
)

var ErrAttractionNotFound = apperr.New(apperr.KindNotFound, "attraction_not_found", "attraction not found")

type DBLayer interface {
	CreateAttraction(ctx context.Context, a *models.Attraction) error
	UpdateAttraction(ctx context.Context, a *models.Attraction) (bool, error)
	DeleteAttraction(ctx context.Context, id string) (bool, error)
	GetAttraction(ctx context.Context, id string) (*models.Attraction, error)
	AttractionExists(ctx context.Context, id string) (bool, error)
	ListAttractions(ctx context.Context, category string) ([]models.Attraction, error)
	GetAttractions(ctx context.Context, ids []string) ([]models.Attraction, error)
}

// Catalog stores attraction metadata.
type Catalog struct {
	DB     DBLayer
	Logger *logger.Logger
	Now    func() time.Time
	NewID  func() string
}

func NewCatalog(db DBLayer, log *logger.Logger) *Catalog {
	if log == nil {
		log = logger.Nop()
	}
	return &Catalog{DB: db, Logger: log, Now: time.Now, NewID: uuid.NewString}
}

func normalize(req models.AttractionRequest) (models.AttractionRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	req.Description = strings.TrimSpace(req.Description)

	tags := make([]string, 0, len(req.Tags))
	seen := map[string]bool{}
	for _, t := range req.Tags {
		t = strings.TrimSpace(t)
		if t != "" && !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	req.Tags = tags

	switch {
	case req.Name == "":
		return req, apperr.Validation("name is required")
	case req.ImageURL == "":
		return req, apperr.Validation("imageUrl is required")
	case req.Category == "":
		return req, apperr.Validation("category is required")
	case len(req.Tags) == 0:
		return req, apperr.Validation("at least one tag is required")
	}
	return req, nil
}

func (c *Catalog) Create(ctx context.Context, req models.AttractionRequest) (*models.Attraction, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	now := c.Now().UTC()
	a := &models.Attraction{
		ID:          c.NewID(),
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		ImageURL:    req.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.DB.CreateAttraction(ctx, a); err != nil {
		return nil, apperr.Internal("failed to create attraction", err)
	}

	c.Logger.Info("CATALOG", fmt.Sprintf("Created attraction %s (%s)", a.ID, a.Name))
	return a, nil
}

func (c *Catalog) Update(ctx context.Context, id string, req models.AttractionRequest) (*models.Attraction, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	existing, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Name = req.Name
	existing.Description = req.Description
	existing.Category = req.Category
	existing.Tags = req.Tags
	existing.ImageURL = req.ImageURL
	existing.UpdatedAt = c.Now().UTC()

	ok, err := c.DB.UpdateAttraction(ctx, existing)
	if err != nil {
		return nil, apperr.Internal("failed to update attraction", err)
	}
	if !ok {
		return nil, ErrAttractionNotFound
	}

	c.Logger.Info("CATALOG", fmt.Sprintf("Updated attraction %s", id))
	return existing, nil
}

func (c *Catalog) Delete(ctx context.Context, id string) error {
	ok, err := c.DB.DeleteAttraction(ctx, id)
	if err != nil {
		return apperr.Internal("failed to delete attraction", err)
	}
	if !ok {
		return ErrAttractionNotFound
	}
	c.Logger.Info("CATALOG", fmt.Sprintf("Deleted attraction %s", id))
	return nil
}

func (c *Catalog) Get(ctx context.Context, id string) (*models.Attraction, error) {
	a, err := c.DB.GetAttraction(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to load attraction", err)
	}
	if a == nil {
		return nil, ErrAttractionNotFound
	}
	return a, nil
}

func (c *Catalog) List(ctx context.Context, category string) ([]models.Attraction, error) {
	list, err := c.DB.ListAttractions(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, apperr.Internal("failed to list attractions", err)
	}
	return list, nil
}

func (c *Catalog) AttractionExists(ctx context.Context, id string) (bool, error) {
	return c.DB.AttractionExists(ctx, id)
}

// GetAttractions returns the attractions that exist among ids, keyed by id.
func (c *Catalog) GetAttractions(ctx context.Context, ids []string) (map[string]models.Attraction, error) {
	list, err := c.DB.GetAttractions(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("failed to load attractions", err)
	}
	out := make(map[string]models.Attraction, len(list))
	for _, a := range list {
		out[a.ID] = a
	}
	return out, nil
}
