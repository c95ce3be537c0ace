// Package dao defines generic storage contracts shared by the runtime stores.
package dao

import (
	"context"
)

// Service represents a keyed store of *T
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	// List returns entities matching all parameters, see criteria.Match
	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
