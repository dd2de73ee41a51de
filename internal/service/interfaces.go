// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/purse/internal/model"
)

// UserStore persists the whole user graph as one snapshot. There is no
// incremental API: a save replaces everything previously stored.
type UserStore interface {
	LoadUsers(ctx context.Context) (map[string]*model.User, error)
	SaveUsers(ctx context.Context, users map[string]*model.User) error
	Close() error
}

// Migrator is implemented by stores that carry a versioned schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}
