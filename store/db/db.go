package db

import (
	"github.com/pkg/errors"

	"github.com/leafmark/leafmark/internal/profile"
	"github.com/leafmark/leafmark/store"
	"github.com/leafmark/leafmark/store/db/postgres"
	"github.com/leafmark/leafmark/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// PostgreSQL is the production driver and uses pgvector for similarity
// search. SQLite runs the same schema with vectors stored as blobs and
// scored in Go; it is meant for development and single-user deployments.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' and 'sqlite' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
