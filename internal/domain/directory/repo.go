package directory

import "context"

// Repository is the directory's storage port.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListActive(ctx context.Context, limit, offset int) ([]*User, int, error)
}
