package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"vet-clinic-web/internal/domain/submissions"
)

type submissionRepo struct {
	mu      sync.RWMutex
	records []submissions.Record
	ids     map[string]struct{}
}

func NewSubmissionRepo() submissions.Repository {
	return &submissionRepo{
		ids: make(map[string]struct{}),
	}
}

func (r *submissionRepo) Create(ctx context.Context, rec submissions.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		return errors.New("submission id required")
	}
	if _, exists := r.ids[rec.ID]; exists {
		return errors.New("submission already exists")
	}

	r.ids[rec.ID] = struct{}{}
	r.records = append(r.records, rec)
	return nil
}

func (r *submissionRepo) ListRecent(ctx context.Context, limit int) ([]submissions.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// más reciente primero; a igual fecha gana el último insertado
	out := make([]submissions.Record, 0, len(r.records))
	for i := len(r.records) - 1; i >= 0; i-- {
		out = append(out, r.records[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
