package contact

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	PreferenceEmail = "email"
	PreferencePhone = "phone"
)

const (
	MsgName       = "Ingresa tu nombre (mínimo 2 caracteres)."
	MsgPreference = "Elige cómo prefieres que te contactemos."
	MsgEmail      = "Correo electrónico inválido."
	MsgPhone      = "Ingresa un teléfono válido."
	MsgMessage    = "Escribe tu mensaje."
	MsgMessageMax = "Máximo 2000 caracteres."

	MsgSent       = "Tu mensaje ha sido enviado correctamente."
	MsgSendFailed = "Error al enviar formulario"
)

const (
	minNameChars    = 2
	maxMessageChars = 2000
	minPhoneDigits  = 7
	maxPhoneDigits  = 15
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Form es el formulario de contacto; también es el body de POST /contact-form.
type Form struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Message           string `json:"message"`
	ContactPreference string `json:"contactPreference"`
}

// FieldErrors: campo JSON -> mensaje.
type FieldErrors map[string]string

// Normalize recorta espacios de todos los campos.
func (f Form) Normalize() Form {
	return Form{
		Name:              strings.TrimSpace(f.Name),
		Email:             strings.TrimSpace(f.Email),
		Phone:             strings.TrimSpace(f.Phone),
		Message:           strings.TrimSpace(f.Message),
		ContactPreference: strings.ToLower(strings.TrimSpace(f.ContactPreference)),
	}
}

// Validate revisa el formulario ya normalizado. El medio preferido es obligatorio;
// el otro es opcional pero, si viene, debe ser válido.
func (f Form) Validate() FieldErrors {
	errs := FieldErrors{}

	if utf8.RuneCountInString(f.Name) < minNameChars {
		errs["name"] = MsgName
	}

	switch f.ContactPreference {
	case PreferenceEmail, PreferencePhone:
	default:
		errs["contactPreference"] = MsgPreference
	}

	if f.Email != "" || f.ContactPreference == PreferenceEmail {
		if !emailPattern.MatchString(f.Email) {
			errs["email"] = MsgEmail
		}
	}
	if f.Phone != "" || f.ContactPreference == PreferencePhone {
		if n := digits(f.Phone); n < minPhoneDigits || n > maxPhoneDigits {
			errs["phone"] = MsgPhone
		}
	}

	switch {
	case f.Message == "":
		errs["message"] = MsgMessage
	case utf8.RuneCountInString(f.Message) > maxMessageChars:
		errs["message"] = MsgMessageMax
	}

	return errs
}

func digits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
