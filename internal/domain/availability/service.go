package availability

import (
	"context"

	"vet-clinic-web/internal/platform/logger"
)

// Source es el endpoint de disponibilidad semanal del CMS.
type Source interface {
	WeekAvailability(ctx context.Context) (Map, error)
}

type Service struct {
	src       Source
	projector *Projector
	log       logger.Logger
}

func NewService(src Source, projector *Projector, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{src: src, projector: projector, log: log}
}

// Fetch trae el mapa crudo (lo usan las sesiones de agenda, que lo guardan y proyectan ellas mismas).
func (s *Service) Fetch(ctx context.Context) (Map, error) {
	m, err := s.src.WeekAvailability(ctx)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = Map{}
	}
	return m, nil
}

// Project proyecta un mapa ya obtenido, registrando las fechas mal formadas.
func (s *Service) Project(m Map) []Day {
	days, skipped := s.projector.Project(m)
	if len(skipped) > 0 {
		s.log.Warn("availability: malformed dates skipped", logger.Fields{"dates": skipped})
	}
	return days
}

// Week trae y proyecta la disponibilidad de la semana.
func (s *Service) Week(ctx context.Context) ([]Day, error) {
	m, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return s.Project(m), nil
}
