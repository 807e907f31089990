package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"vet-clinic-web/internal/domain/appointments"
)

type sessionRepo struct {
	mu   sync.RWMutex
	byID map[string]*appointments.Session
}

func NewSessionRepo() appointments.Repository {
	return &sessionRepo{
		byID: make(map[string]*appointments.Session),
	}
}

func (r *sessionRepo) Save(ctx context.Context, s *appointments.Session) error {
	if s == nil || s.ID == "" {
		return errors.New("session id required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[s.ID]; exists {
		return errors.New("session already exists")
	}
	r.byID[s.ID] = s
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*appointments.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, appointments.ErrNotFound
	}
	return s, nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return appointments.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// List devuelve las sesiones ordenadas por id para que el barrido sea estable.
func (r *sessionRepo) List(ctx context.Context) ([]*appointments.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*appointments.Session, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
