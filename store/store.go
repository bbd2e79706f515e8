package store

import (
	"context"
	"time"

	"github.com/leafmark/leafmark/internal/profile"
	"github.com/leafmark/leafmark/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Cache settings
	cacheConfig cache.Config

	// Caches
	itemCache    *cache.Cache // cache for items
	profileCache *cache.Cache // cache for interest profiles
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	// Default cache settings
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
	}

	store := &Store{
		driver:       driver,
		profile:      profile,
		cacheConfig:  cacheConfig,
		itemCache:    cache.New(cacheConfig),
		profileCache: cache.New(cacheConfig),
	}

	return store
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	// Stop all cache cleanup goroutines
	s.itemCache.Close()
	s.profileCache.Close()

	return s.driver.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.driver.GetDB().PingContext(ctx)
}
