// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/mohangy/azii/internal/domain"
)

// RecordStore persists one flat collection of records of a single entity type.
// Implementations must be safe for concurrent use.
type RecordStore[T any] interface {
	// Load returns every record. An empty store yields an empty slice.
	Load(ctx context.Context) ([]T, error)
	// Save replaces the whole collection.
	Save(ctx context.Context, records []T) error
	// Upsert inserts or overwrites the record stored under key.
	Upsert(ctx context.Context, key string, record T) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// UserLookup resolves a username to the attributes stamped on income entries.
type UserLookup interface {
	LookupUser(ctx context.Context, username string) (domain.UserInfo, error)
}

// Notifier delivers operator-facing notifications about accounting events.
// Delivery is best effort: callers log failures and carry on.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}
