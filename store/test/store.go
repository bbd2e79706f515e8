package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leafmark/leafmark/internal/profile"
	"github.com/leafmark/leafmark/store"
	"github.com/leafmark/leafmark/store/db"
)

// NewTestingStore creates a migrated store backed by a throwaway sqlite
// database. Set DRIVER=postgres and DSN to run the suite against postgres
// instead.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	p := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	testStore := store.New(dbDriver, p)
	if err := testStore.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}

	t.Cleanup(func() {
		if err := testStore.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}
	})

	return testStore
}

func getTestingProfile(t *testing.T) *profile.Profile {
	driver := getDriverFromEnv()
	dir := t.TempDir()
	p := &profile.Profile{
		Mode:   "dev",
		Data:   dir,
		Driver: driver,
	}

	switch driver {
	case "postgres":
		p.DSN = os.Getenv("DSN")
		if p.DSN == "" {
			t.Skip("DSN is required to test with postgres")
		}
	default:
		p.DSN = filepath.Join(dir, "leafmark_test.db")
	}

	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}
