package appointments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownField       = errors.New("unknown field")
	ErrInvalidValue       = errors.New("invalid value")
	ErrInvalidDraft       = errors.New("draft has field errors")
	ErrNotReviewing       = errors.New("no confirmation in progress")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrSubmissionFailed   = errors.New("submission failed")
	ErrSessionClosed      = errors.New("session closed")
	ErrNotFound           = errors.New("not found")
)

// Field es el nombre de un campo del formulario de agenda (igual al nombre JSON del Draft).
type Field string

const (
	FieldPetType      Field = "petType"
	FieldPetSex       Field = "petSex"
	FieldPetName      Field = "petName"
	FieldServices     Field = "selectedServiceIds"
	FieldComment      Field = "comment"
	FieldSlot         Field = "selectedSlot"
	FieldRUT          Field = "rut"
	FieldFirstName    Field = "firstName"
	FieldLastName     Field = "lastName"
	FieldPhone        Field = "phone"
	FieldEmail        Field = "email"
	FieldWeight       Field = "weight"
	FieldAge          Field = "age"
	FieldCaptchaToken Field = "captchaToken"
)

// Tipos de mascota y sexo aceptados.
const (
	PetTypeDog = "dog"
	PetTypeCat = "cat"

	PetSexMale   = "male"
	PetSexFemale = "female"
)

// FieldErrors: campo -> un único mensaje. Sin clave = campo válido.
type FieldErrors map[Field]string

func (e FieldErrors) clone() FieldErrors {
	out := make(FieldErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Draft es el formulario de agenda en curso. Los campos escalares guardan el
// texto tal como lo envía el formulario; Weight y Age vacíos = no informados.
type Draft struct {
	PetType            string   `json:"petType"`
	PetSex             string   `json:"petSex"`
	PetName            string   `json:"petName"`
	SelectedServiceIDs []string `json:"selectedServiceIds"`
	Comment            string   `json:"comment"`
	SelectedSlot       string   `json:"selectedSlot"`
	RUT                string   `json:"rut"`
	FirstName          string   `json:"firstName"`
	LastName           string   `json:"lastName"`
	Phone              string   `json:"phone"`
	Email              string   `json:"email"`
	Weight             string   `json:"weight"`
	Age                string   `json:"age"`
	CaptchaToken       string   `json:"captchaToken"`
}

// NewDraft devuelve el formulario con sus valores por defecto.
func NewDraft() Draft {
	return Draft{
		PetType:            PetTypeDog,
		SelectedServiceIDs: []string{},
	}
}

func (d Draft) clone() Draft {
	d.SelectedServiceIDs = append([]string{}, d.SelectedServiceIDs...)
	return d
}

// HasService indica si id está seleccionado.
func (d Draft) HasService(id string) bool {
	for _, s := range d.SelectedServiceIDs {
		if s == id {
			return true
		}
	}
	return false
}

// ToggleService agrega o quita un servicio de la selección.
func (d *Draft) ToggleService(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	if d.HasService(id) {
		out := make([]string, 0, len(d.SelectedServiceIDs))
		for _, s := range d.SelectedServiceIDs {
			if s != id {
				out = append(out, s)
			}
		}
		d.SelectedServiceIDs = out
		return
	}
	d.SelectedServiceIDs = append(d.SelectedServiceIDs, id)
}

// Set asigna un campo desde su valor JSON crudo: string para todos los campos
// salvo selectedServiceIds, que es una lista de strings (sin duplicados).
// weight/age aceptan también un número JSON.
func (d *Draft) Set(f Field, raw json.RawMessage) error {
	if f == FieldServices {
		var ids []string
		if err := json.Unmarshal(raw, &ids); err != nil {
			return fmt.Errorf("%w: %s must be a list of strings", ErrInvalidValue, f)
		}
		d.SelectedServiceIDs = dedupe(ids)
		return nil
	}

	dst := d.stringField(f)
	if dst == nil {
		return fmt.Errorf("%w: %s", ErrUnknownField, f)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		if f != FieldWeight && f != FieldAge {
			return fmt.Errorf("%w: %s must be a string", ErrInvalidValue, f)
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("%w: %s must be a number or string", ErrInvalidValue, f)
		}
		s = n.String()
	}
	*dst = s
	return nil
}

func (d *Draft) stringField(f Field) *string {
	switch f {
	case FieldPetType:
		return &d.PetType
	case FieldPetSex:
		return &d.PetSex
	case FieldPetName:
		return &d.PetName
	case FieldComment:
		return &d.Comment
	case FieldSlot:
		return &d.SelectedSlot
	case FieldRUT:
		return &d.RUT
	case FieldFirstName:
		return &d.FirstName
	case FieldLastName:
		return &d.LastName
	case FieldPhone:
		return &d.Phone
	case FieldEmail:
		return &d.Email
	case FieldWeight:
		return &d.Weight
	case FieldAge:
		return &d.Age
	case FieldCaptchaToken:
		return &d.CaptchaToken
	default:
		return nil
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
