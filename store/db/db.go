// Package db creates the store driver for the configured database.
package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/tarotlink/internal/profile"
	"github.com/hrygo/tarotlink/store"
	"github.com/hrygo/tarotlink/store/db/postgres"
	"github.com/hrygo/tarotlink/store/db/sqlite"
)

// NewDBDriver creates a new DB driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "postgres":
		return postgres.NewDB(profile)
	case "sqlite":
		return sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unsupported driver: %s", profile.Driver)
	}
}
