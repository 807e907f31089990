package submissions

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 200

	maxMessageChars = 500
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Record guarda el resultado de un envío.
func (s *Service) Record(ctx context.Context, kind Kind, reference string, ok bool, message string) error {
	if kind != KindAppointment && kind != KindContact {
		return ErrInvalidInput
	}

	status := StatusFailed
	if ok {
		status = StatusSucceeded
	}

	r := Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Reference: strings.TrimSpace(reference),
		Status:    status,
		Message:   truncate(strings.TrimSpace(message), maxMessageChars),
		CreatedAt: s.now().UTC(),
	}
	return s.repo.Create(ctx, r)
}

// Recent lista los últimos envíos, más nuevos primero.
// limit <= 0 usa DefaultListLimit; se acota a MaxListLimit.
func (s *Service) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.ListRecent(ctx, limit)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
