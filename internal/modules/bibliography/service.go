package bibliography

import (
	"context"
	"strconv"
	"strings"

	"github.com/holdfast/holdfast/internal/config"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/events"
	"github.com/rs/zerolog"
)

// EventEmitter is implemented by events.Manager
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// Service manages bibliography items
type Service struct {
	repo    *Repository
	catalog *config.Catalog
	events  EventEmitter
	log     zerolog.Logger
}

// NewService creates a new bibliography service
func NewService(repo *Repository, catalog *config.Catalog, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		log:     log.With().Str("service", "bibliography").Logger(),
	}
}

// SetEventEmitter wires change notifications
func (s *Service) SetEventEmitter(e EventEmitter) {
	s.events = e
}

// Add validates and stores an item. Title is required; an empty category
// falls back to the catalog default.
func (s *Service) Add(ctx context.Context, item domain.BibliographyItem) (domain.BibliographyItem, error) {
	const op = "add_bibliography_item"

	item.Title = strings.TrimSpace(item.Title)
	item.Author = strings.TrimSpace(item.Author)
	item.Link = strings.TrimSpace(item.Link)
	item.Description = strings.TrimSpace(item.Description)

	if item.Title == "" {
		return item, domain.NewValidationError(op, "title is required")
	}
	if item.Year != nil && (*item.Year < 1 || *item.Year > 9999) {
		return item, domain.NewValidationError(op, "year %d is out of range", *item.Year)
	}

	category, err := s.catalog.NormalizeBibliographyCategory(item.Category)
	if err != nil {
		return item, err
	}
	item.Category = category

	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return item, domain.NewPersistenceError(op, err)
	}

	s.log.Info().Int64("id", created.ID).Str("title", created.Title).Msg("Bibliography item added")
	s.emit("added", created.ID)
	return created, nil
}

// Delete removes an item by id
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return domain.NewPersistenceError("delete_bibliography_item", err)
	}
	s.log.Info().Int64("id", id).Msg("Bibliography item deleted")
	s.emit("removed", id)
	return nil
}

// Get returns one item
func (s *Service) Get(ctx context.Context, id int64) (domain.BibliographyItem, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return item, domain.NewPersistenceError("get_bibliography_item", err)
	}
	return item, nil
}

// List returns items newest first
func (s *Service) List(ctx context.Context, category string) ([]domain.BibliographyItem, error) {
	if category != "" {
		c, err := s.catalog.NormalizeBibliographyCategory(category)
		if err != nil {
			return nil, err
		}
		category = c
	}
	items, err := s.repo.List(ctx, category)
	if err != nil {
		return nil, domain.NewPersistenceError("list_bibliography", err)
	}
	return items, nil
}

func (s *Service) emit(action string, id int64) {
	if s.events == nil {
		return
	}
	s.events.EmitTyped("bibliography", &events.CollectionChangedData{
		Type:   events.BibliographyChanged,
		Action: action,
		Key:    strconv.FormatInt(id, 10),
	})
}
