// Package catalog holds the menu: items offered for sale and the categories
// they are grouped in.
package catalog

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/qpos/internal/domain/poserr"
	"github.com/xenking/qpos/internal/storage/kv"
)

// FallbackCategory receives the items of a deleted category.
const FallbackCategory = "food"

// MenuItem is an item offered for sale. Orders copy it by value, so later
// edits never change existing orders.
type MenuItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
}

// Validate checks the fields required for an item to be sold.
func (m MenuItem) Validate() error {
	if m.Name == "" {
		return poserr.InvalidInput("menu item name required")
	}
	if m.Price.IsNegative() {
		return poserr.InvalidInput("menu item %q has negative price %s", m.Name, m.Price)
	}
	return nil
}

// Category groups menu items on the order screen.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Service owns the menu. It is safe for concurrent use.
type Service struct {
	persist kv.Persister
	lg      *zap.Logger
	loader  kv.Loader

	mu         sync.RWMutex
	items      []MenuItem
	categories []Category
}

// NewService creates a Service seeded with the default menu. Call Load to
// replace the defaults with persisted data.
func NewService(persist kv.Persister, lg *zap.Logger) *Service {
	return &Service{
		persist:    persist,
		lg:         lg,
		items:      DefaultItems(),
		categories: DefaultCategories(),
	}
}

// Load restores the menu from store. Missing keys keep the defaults. Keys
// that cannot be read keep the defaults and stay read-only until Sync reads
// them.
func (s *Service) Load(ctx context.Context, store kv.Store) {
	s.loader.OnCorrupt = func(key string, err error) {
		s.lg.Warn("Stored menu unreadable, using defaults", zap.String("key", key), zap.Error(err))
	}
	s.loader.Add(kv.KeyMenuItems, func(ctx context.Context, store kv.Store) error {
		var items []MenuItem
		found, err := kv.Load(ctx, store, kv.KeyMenuItems, &items)
		if err != nil || !found {
			return err
		}
		s.mu.Lock()
		s.items = items
		s.mu.Unlock()
		return nil
	})
	s.loader.Add(kv.KeyCategories, func(ctx context.Context, store kv.Store) error {
		var categories []Category
		found, err := kv.Load(ctx, store, kv.KeyCategories, &categories)
		if err != nil || !found {
			return err
		}
		s.mu.Lock()
		s.categories = categories
		s.mu.Unlock()
		return nil
	})

	if err := s.Sync(ctx, store); err != nil {
		s.lg.Warn("Load menu, using defaults until storage recovers", zap.Error(err))
	}
}

// Sync retries the keys Load could not read.
func (s *Service) Sync(ctx context.Context, store kv.Store) error {
	return s.loader.Sync(ctx, store)
}

func (s *Service) writable(keys ...string) error {
	for _, key := range keys {
		if !s.loader.Loaded(key) {
			return poserr.TransientIO("%s not loaded from storage yet", key)
		}
	}
	return nil
}

// Items returns all menu items in display order.
func (s *Service) Items() []MenuItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]MenuItem(nil), s.items...)
}

// Item returns the menu item with the given id.
func (s *Service) Item(id string) (MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, nil
		}
	}
	return MenuItem{}, poserr.NotFound("menu item", id)
}

// PutItem creates or replaces a menu item. An item without an id is created
// with a fresh one.
func (s *Service) PutItem(item MenuItem) (MenuItem, error) {
	if err := item.Validate(); err != nil {
		return MenuItem{}, err
	}
	if err := s.writable(kv.KeyMenuItems); err != nil {
		return MenuItem{}, err
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		s.items = append(s.items, item)
	}
	s.persist.Persist(kv.KeyMenuItems, s.items)
	return item, nil
}

// DeleteItem removes a menu item. Existing orders keep their snapshot.
func (s *Service) DeleteItem(id string) error {
	if err := s.writable(kv.KeyMenuItems); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.persist.Persist(kv.KeyMenuItems, s.items)
			return nil
		}
	}
	return poserr.NotFound("menu item", id)
}

// Categories returns all categories in display order.
func (s *Service) Categories() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Category(nil), s.categories...)
}

// PutCategory creates or replaces a category.
func (s *Service) PutCategory(c Category) (Category, error) {
	if c.Name == "" {
		return Category{}, poserr.InvalidInput("category name required")
	}
	if err := s.writable(kv.KeyCategories); err != nil {
		return Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.categories {
		if s.categories[i].ID == c.ID {
			s.categories[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		s.categories = append(s.categories, c)
	}
	s.persist.Persist(kv.KeyCategories, s.categories)
	return c, nil
}

// DeleteCategory removes a category and moves its items to FallbackCategory.
func (s *Service) DeleteCategory(id string) error {
	if id == FallbackCategory {
		return errors.Wrapf(poserr.ErrInvalidInput, "category %q cannot be deleted", id)
	}
	if err := s.writable(kv.KeyCategories, kv.KeyMenuItems); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.categories {
		if s.categories[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return poserr.NotFound("category", id)
	}
	s.categories = append(s.categories[:idx], s.categories[idx+1:]...)

	for i := range s.items {
		if s.items[i].Category == id {
			s.items[i].Category = FallbackCategory
		}
	}
	s.persist.Persist(kv.KeyCategories, s.categories)
	s.persist.Persist(kv.KeyMenuItems, s.items)
	return nil
}
