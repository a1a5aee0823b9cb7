package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/sweetshop/internal/events"
	"github.com/Skotchmaster/sweetshop/internal/metrics"
	"github.com/Skotchmaster/sweetshop/internal/models"
	"github.com/Skotchmaster/sweetshop/internal/repo"
	"github.com/Skotchmaster/sweetshop/internal/util"
	"github.com/Skotchmaster/sweetshop/pkg/logging"
)

// SweetIndex is the free-text mirror of the catalogue.
type SweetIndex interface {
	Put(ctx context.Context, s *models.Sweet) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Sweet, error)
}

type SweetService struct {
	Repo      *repo.GormRepo
	Index     SweetIndex
	Publisher events.Publisher
	Metrics   *metrics.Metrics
}

type SweetInput = repo.SweetFields

// SearchFilter carries the optional search parameters; nil means absent.
type SearchFilter struct {
	Name     *string
	Category *string
	MinPrice *float64
	MaxPrice *float64
}

func (s *SweetService) List(ctx context.Context) ([]models.Sweet, error) {
	return s.Repo.ListSweets(ctx)
}

func (s *SweetService) Get(ctx context.Context, id uuid.UUID) (*models.Sweet, error) {
	sweet, err := s.Repo.GetSweet(ctx, id)
	return sweet, notFound(err)
}

func (s *SweetService) Create(ctx context.Context, in SweetInput) (*models.Sweet, error) {
	in = normalize(in)
	if err := validateSweet(in); err != nil {
		return nil, err
	}
	sweet := &models.Sweet{
		Name:        in.Name,
		Category:    in.Category,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Description: in.Description,
	}
	if err := s.Repo.CreateSweet(ctx, sweet); err != nil {
		return nil, err
	}
	s.changed(ctx, events.SweetCreated, sweet, nil)
	return sweet, nil
}

func (s *SweetService) Update(ctx context.Context, id uuid.UUID, in SweetInput) (*models.Sweet, error) {
	in = normalize(in)
	if err := validateSweet(in); err != nil {
		return nil, err
	}
	sweet, err := s.Repo.UpdateSweet(ctx, id, in)
	if err != nil {
		return nil, notFound(err)
	}
	s.changed(ctx, events.SweetUpdated, sweet, nil)
	return sweet, nil
}

func (s *SweetService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteSweet(ctx, id); err != nil {
		return notFound(err)
	}
	s.removed(ctx, id)
	return nil
}

func (s *SweetService) Purchase(ctx context.Context, id uuid.UUID, quantity int) (*models.Sweet, error) {
	if quantity <= 0 {
		s.Metrics.Purchase("invalid", 0)
		return nil, ErrInvalidQuantity
	}
	sweet, err := s.Repo.AdjustQuantity(ctx, id, -quantity)
	switch {
	case errors.Is(err, repo.ErrInsufficientQuantity):
		s.Metrics.Purchase("insufficient", 0)
		return nil, ErrInsufficientStock
	case errors.Is(err, repo.ErrNotFound):
		s.Metrics.Purchase("not_found", 0)
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	s.Metrics.Purchase("ok", quantity)
	s.changed(ctx, events.SweetPurchased, sweet, map[string]any{"quantity": quantity})
	return sweet, nil
}

func (s *SweetService) Restock(ctx context.Context, id uuid.UUID, quantity int) (*models.Sweet, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	sweet, err := s.Repo.AdjustQuantity(ctx, id, quantity)
	if err != nil {
		return nil, notFound(err)
	}
	s.Metrics.Restock()
	s.changed(ctx, events.SweetRestocked, sweet, map[string]any{"quantity": quantity})
	return sweet, nil
}

// Search applies the first matching rule, in order:
// all four filters; name only; category only; price range; everything.
func (s *SweetService) Search(ctx context.Context, f SearchFilter) ([]models.Sweet, error) {
	hasRange := f.MinPrice != nil && f.MaxPrice != nil
	switch {
	case f.Name != nil && f.Category != nil && hasRange:
		return s.Repo.SearchSweets(ctx, *f.Name, *f.Category, *f.MinPrice, *f.MaxPrice)
	case f.Name != nil:
		return s.Repo.FindSweetsByNameContaining(ctx, *f.Name)
	case f.Category != nil:
		return s.Repo.FindSweetsByCategory(ctx, *f.Category)
	case hasRange:
		return s.Repo.FindSweetsByPriceBetween(ctx, *f.MinPrice, *f.MaxPrice)
	default:
		return s.Repo.ListSweets(ctx)
	}
}

func (s *SweetService) FullText(ctx context.Context, query string, page, size int) (int64, []models.Sweet, error) {
	if s.Index == nil {
		return 0, nil, ErrSearchUnavailable
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil, validation("query is required")
	}
	from, limit := util.Calculate(page, size)
	total, items, err := s.Index.Search(ctx, query, from, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("full-text search: %w", err)
	}
	return total, items, nil
}

func (s *SweetService) changed(ctx context.Context, typ string, sweet *models.Sweet, extra map[string]any) {
	l := logging.FromContext(ctx).With("svc", "sweets", "sweet_id", sweet.ID.String())
	if s.Index != nil {
		if err := s.Index.Put(ctx, sweet); err != nil {
			l.Warn("index_error", "event", typ, "error", err)
		}
	}
	if s.Publisher != nil {
		payload := map[string]any{"sweet": sweet}
		for k, v := range extra {
			payload[k] = v
		}
		ev := events.Event{Type: typ, Key: sweet.ID.String(), Payload: payload}
		if err := s.Publisher.Publish(ctx, events.TopicSweets, ev); err != nil {
			l.Warn("publish_error", "event", typ, "error", err)
		}
	}
}

func (s *SweetService) removed(ctx context.Context, id uuid.UUID) {
	l := logging.FromContext(ctx).With("svc", "sweets", "sweet_id", id.String())
	if s.Index != nil {
		if err := s.Index.Delete(ctx, id); err != nil {
			l.Warn("index_error", "event", events.SweetDeleted, "error", err)
		}
	}
	if s.Publisher != nil {
		ev := events.Event{Type: events.SweetDeleted, Key: id.String(), Payload: map[string]any{"id": id}}
		if err := s.Publisher.Publish(ctx, events.TopicSweets, ev); err != nil {
			l.Warn("publish_error", "event", events.SweetDeleted, "error", err)
		}
	}
}

func notFound(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func normalize(in SweetInput) SweetInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

func validateSweet(in SweetInput) error {
	switch {
	case in.Name == "":
		return validation("name is required")
	case in.Category == "":
		return validation("category is required")
	case math.IsNaN(in.Price) || math.IsInf(in.Price, 0) || in.Price < 0:
		return validation("price must be non-negative")
	case in.Quantity < 0:
		return validation("quantity must be non-negative")
	}
	return nil
}
