package submissions

import "time"

// Kind es el formulario que originó el envío.
type Kind string

const (
	KindAppointment Kind = "appointment"
	KindContact     Kind = "contact"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Record es el resultado de un envío hacia el backend. No guarda datos personales:
// Reference identifica el envío (p.ej. el horario date::hour) y Message es el
// texto que devolvió el backend.
type Record struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Reference string    `json:"reference"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
