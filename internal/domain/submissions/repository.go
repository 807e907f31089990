package submissions

import "context"

type Repository interface {
	Create(ctx context.Context, r Record) error
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}
