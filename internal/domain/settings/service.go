package settings

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/qpos/internal/domain/money"
	"github.com/xenking/qpos/internal/domain/poserr"
	"github.com/xenking/qpos/internal/storage/kv"
)

// Service owns the back-office settings. It is safe for concurrent use.
// Readers always get a copy of the latest committed values.
type Service struct {
	persist kv.Persister
	lg      *zap.Logger
	loader  kv.Loader

	mu         sync.RWMutex
	tax        TaxConfiguration
	discounts  []DiscountType
	restaurant Restaurant
	general    General
}

// NewService creates a Service holding the defaults. currency selects the
// initial display currency; unknown codes fall back to money.DefaultCode.
func NewService(persist kv.Persister, lg *zap.Logger, currency string) *Service {
	return &Service{
		persist:    persist,
		lg:         lg,
		tax:        DefaultTax(),
		discounts:  DefaultDiscounts(),
		restaurant: DefaultRestaurant(),
		general:    General{CurrencyCode: money.LookupOrDefault(currency).Code},
	}
}

// Load restores persisted settings. Missing keys keep their current values.
// Keys that cannot be read keep the defaults and stay read-only until Sync
// reads them.
func (s *Service) Load(ctx context.Context, store kv.Store) {
	s.loader.OnCorrupt = func(key string, err error) {
		s.lg.Warn("Stored settings unreadable, keeping defaults", zap.String("key", key), zap.Error(err))
	}
	s.loader.Add(kv.KeyTaxSettings, func(ctx context.Context, store kv.Store) error {
		var tax TaxConfiguration
		found, err := kv.Load(ctx, store, kv.KeyTaxSettings, &tax)
		if err != nil || !found {
			return err
		}
		if err := tax.Validate(); err != nil {
			s.lg.Warn("Stored tax settings invalid, keeping defaults", zap.Error(err))
			return nil
		}
		s.mu.Lock()
		s.tax = tax
		s.mu.Unlock()
		return nil
	})
	s.loader.Add(kv.KeyDiscountTypes, func(ctx context.Context, store kv.Store) error {
		var discounts []DiscountType
		found, err := kv.Load(ctx, store, kv.KeyDiscountTypes, &discounts)
		if err != nil || !found {
			return err
		}
		s.mu.Lock()
		s.discounts = discounts
		s.mu.Unlock()
		return nil
	})
	s.loader.Add(kv.KeyRestaurantSettings, func(ctx context.Context, store kv.Store) error {
		var restaurant Restaurant
		found, err := kv.Load(ctx, store, kv.KeyRestaurantSettings, &restaurant)
		if err != nil || !found {
			return err
		}
		s.mu.Lock()
		s.restaurant = restaurant
		s.mu.Unlock()
		return nil
	})
	s.loader.Add(kv.KeyGeneralSettings, func(ctx context.Context, store kv.Store) error {
		var general General
		found, err := kv.Load(ctx, store, kv.KeyGeneralSettings, &general)
		if err != nil || !found {
			return err
		}
		if err := general.Validate(); err != nil {
			s.lg.Warn("Stored general settings invalid, keeping defaults", zap.Error(err))
			return nil
		}
		s.mu.Lock()
		s.general = general
		s.mu.Unlock()
		return nil
	})

	if err := s.Sync(ctx, store); err != nil {
		s.lg.Warn("Load settings, keeping defaults until storage recovers", zap.Error(err))
	}
}

// Sync retries the keys Load could not read.
func (s *Service) Sync(ctx context.Context, store kv.Store) error {
	return s.loader.Sync(ctx, store)
}

// writable fails while key still holds defaults in place of unread data.
func (s *Service) writable(key string) error {
	if !s.loader.Loaded(key) {
		return poserr.TransientIO("%s not loaded from storage yet", key)
	}
	return nil
}

// Tax returns the current tax configuration.
func (s *Service) Tax() TaxConfiguration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tax
}

// UpdateTax applies a partial update and returns the resulting configuration.
func (s *Service) UpdateTax(u TaxUpdate) (TaxConfiguration, error) {
	if err := s.writable(kv.KeyTaxSettings); err != nil {
		return s.Tax(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := u.Apply(s.tax)
	if err := next.Validate(); err != nil {
		return s.tax, err
	}
	s.tax = next
	s.persist.Persist(kv.KeyTaxSettings, s.tax)
	return s.tax, nil
}

// Restaurant returns the restaurant identity.
func (s *Service) Restaurant() Restaurant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restaurant
}

// UpdateRestaurant replaces the restaurant identity.
func (s *Service) UpdateRestaurant(r Restaurant) (Restaurant, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return Restaurant{}, poserr.InvalidInput("restaurant name required")
	}
	if err := s.writable(kv.KeyRestaurantSettings); err != nil {
		return Restaurant{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.restaurant = r
	s.persist.Persist(kv.KeyRestaurantSettings, s.restaurant)
	return r, nil
}

// General returns the display preferences.
func (s *Service) General() General {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.general
}

// UpdateGeneral replaces the display preferences.
func (s *Service) UpdateGeneral(g General) (General, error) {
	g.CurrencyCode = strings.ToUpper(g.CurrencyCode)
	if err := g.Validate(); err != nil {
		return General{}, err
	}
	if err := s.writable(kv.KeyGeneralSettings); err != nil {
		return General{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.general = g
	s.persist.Persist(kv.KeyGeneralSettings, s.general)
	return g, nil
}

// Money returns a formatter for the configured currency.
func (s *Service) Money() money.Formatter {
	s.mu.RLock()
	code := s.general.CurrencyCode
	s.mu.RUnlock()
	return money.NewFormatter(money.LookupOrDefault(code))
}

// Format renders amount in the configured currency. It follows currency
// changes immediately.
func (s *Service) Format(amount decimal.Decimal) string {
	return s.Money().Format(amount)
}

// Discounts returns all discount types.
func (s *Service) Discounts() []DiscountType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]DiscountType(nil), s.discounts...)
}

// PutDiscount creates or replaces a discount type.
func (s *Service) PutDiscount(d DiscountType) (DiscountType, error) {
	if err := d.Validate(); err != nil {
		return DiscountType{}, err
	}
	if err := s.writable(kv.KeyDiscountTypes); err != nil {
		return DiscountType{}, err
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.discounts {
		if s.discounts[i].ID == d.ID {
			s.discounts[i] = d
			replaced = true
			break
		}
	}
	if !replaced {
		s.discounts = append(s.discounts, d)
	}
	s.persist.Persist(kv.KeyDiscountTypes, s.discounts)
	return d, nil
}

// DeleteDiscount removes a discount type.
func (s *Service) DeleteDiscount(id string) error {
	if err := s.writable(kv.KeyDiscountTypes); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.discounts {
		if s.discounts[i].ID == id {
			s.discounts = append(s.discounts[:i], s.discounts[i+1:]...)
			s.persist.Persist(kv.KeyDiscountTypes, s.discounts)
			return nil
		}
	}
	return poserr.NotFound("discount type", id)
}
