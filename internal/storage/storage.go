// Package storage defines the persistence interface for portal rows.
// Implementations (e.g. sqlite) live in subpackages.
package storage

import (
	"context"
	"errors"

	"github.com/dkeye/portald/internal/domain"
)

// ErrNotFound indicates a requested record is missing. Storage
// unavailability is a different, retryable error; implementations must
// never report it as an absent row.
var ErrNotFound = errors.New("record not found")

// PortalStore persists one portal row per guild.
type PortalStore interface {
	Get(ctx context.Context, guild domain.GuildID) (domain.Portal, error)
	Put(ctx context.Context, portal domain.Portal) error
	Delete(ctx context.Context, guild domain.GuildID) error
}
