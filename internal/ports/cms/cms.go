package cms

import (
	"vet-clinic-web/internal/domain/appointments"
	"vet-clinic-web/internal/domain/availability"
	"vet-clinic-web/internal/domain/catalog"
)

// CMS es todo lo que el sitio consume del CMS headless.
type CMS interface {
	catalog.Source
	availability.Source
	appointments.Submitter

	IsConfigured() bool
}
