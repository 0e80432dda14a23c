package repos

import (
	"context"
	"errors"
	"fmt"

	"tiendaza/internal/domain"
)

// Repository is the remote-data capability the catalog consumes.
type Repository interface {
	FetchAll(ctx context.Context) ([]domain.Listing, error)
	FetchByID(ctx context.Context, id int64) (domain.Listing, error)
	Search(ctx context.Context, query string) ([]domain.Listing, error)
	Create(ctx context.Context, l domain.Listing) (domain.Listing, error)
	CreateWithImage(ctx context.Context, title, description string, price int64, image []byte) (domain.Listing, error)
	Update(ctx context.Context, id int64, l domain.Listing) (domain.Listing, error)
	Delete(ctx context.Context, id int64) error
}

// ErrNotFound is returned by FetchByID on a lookup miss.
var ErrNotFound = errors.New("listing not found")

// NetworkError reports any failed repository call. Message is what the
// presentation layer shows, so it is kept verbatim.
type NetworkError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
	return e.Op + ": network error"
}

func (e *NetworkError) Unwrap() error { return e.Err }
