package catalog

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvariantViolation marks a store contract breach. The Service checks
// existence before every mutation, so reaching it means a defect.
var ErrInvariantViolation = errors.New("store invariant violation")

var (
	ErrDuplicateID = fmt.Errorf("%w: duplicate id", ErrInvariantViolation)
	ErrUnknownID   = fmt.Errorf("%w: unknown id", ErrInvariantViolation)
)

// Store is the authoritative item collection. Implementations must be safe
// for concurrent use.
type Store interface {
	Create(ctx context.Context, it Item) error
	Get(ctx context.Context, id string) (Item, bool, error)
	List(ctx context.Context) ([]Item, error)
	Update(ctx context.Context, it Item) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
