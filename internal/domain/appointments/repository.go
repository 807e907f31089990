package appointments

import "context"

// Repository guarda las sesiones abiertas. Get devuelve ErrNotFound si no existe.
type Repository interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Session, error)
}
