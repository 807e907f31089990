package appointments

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"vet-clinic-web/internal/domain/availability"
	"vet-clinic-web/internal/domain/captcha"
	"vet-clinic-web/internal/domain/catalog"
)

const (
	maxCommentChars = 1000
	minNameChars    = 2
	minPhoneDigits  = 7
	maxPhoneDigits  = 15
	maxWeightKg     = 100
	maxAgeYears     = 40
)

const (
	MsgPetType         = "Selecciona un tipo de mascota."
	MsgPetSex          = "Selecciona el sexo de tu mascota."
	MsgPetName         = "Ingresa el nombre de tu mascota."
	MsgServices        = "Selecciona al menos un servicio."
	MsgServicesGone    = "Hay servicios no disponibles seleccionados."
	MsgComment         = "Máximo 1000 caracteres."
	MsgSlot            = "Selecciona un horario."
	MsgSlotUnavailable = "El horario seleccionado no está disponible."
	MsgRUTFormat       = "RUT inválido (formato 12.345.678-9)."
	MsgRUTCheckDigit   = "RUT inválido (dígito verificador incorrecto)."
	MsgFirstName       = "Nombre debe tener al menos 2 caracteres."
	MsgLastName        = "Apellido debe tener al menos 2 caracteres."
	MsgPhone           = "Ingresa un teléfono válido."
	MsgEmail           = "Correo electrónico inválido."
	MsgWeight          = "El peso debe ser un número mayor a 0 y hasta 100 kg."
	MsgAge             = "La edad debe ser un número entero entre 0 y 40."
	MsgCaptchaRequired = captcha.MsgRequired
)

// FieldError es el error de un solo campo.
type FieldError struct {
	Field   Field
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type check struct {
	fails func(d Draft) bool
	msg   string
}

type rule struct {
	field  Field
	checks []check
}

// rules se evalúa en este orden; dentro de cada campo gana el primer check que falla.
var rules = []rule{
	{FieldPetType, []check{
		{func(d Draft) bool { return d.PetType != PetTypeDog && d.PetType != PetTypeCat }, MsgPetType},
	}},
	{FieldPetSex, []check{
		{func(d Draft) bool { return d.PetSex != PetSexMale && d.PetSex != PetSexFemale }, MsgPetSex},
	}},
	{FieldPetName, []check{
		{func(d Draft) bool { return strings.TrimSpace(d.PetName) == "" }, MsgPetName},
	}},
	{FieldServices, []check{
		{func(d Draft) bool { return len(d.SelectedServiceIDs) == 0 }, MsgServices},
	}},
	{FieldComment, []check{
		{func(d Draft) bool { return utf8.RuneCountInString(d.Comment) > maxCommentChars }, MsgComment},
	}},
	{FieldSlot, []check{
		{func(d Draft) bool { return strings.TrimSpace(d.SelectedSlot) == "" }, MsgSlot},
	}},
	{FieldRUT, []check{
		{func(d Draft) bool { return !RUTFormatOK(d.RUT) }, MsgRUTFormat},
		{func(d Draft) bool { return !RUTChecksumOK(d.RUT) }, MsgRUTCheckDigit},
	}},
	{FieldFirstName, []check{
		{func(d Draft) bool { return tooShort(d.FirstName) }, MsgFirstName},
	}},
	{FieldLastName, []check{
		{func(d Draft) bool { return tooShort(d.LastName) }, MsgLastName},
	}},
	{FieldPhone, []check{
		{func(d Draft) bool { return !phoneOK(d.Phone) }, MsgPhone},
	}},
	{FieldEmail, []check{
		{func(d Draft) bool { return !emailPattern.MatchString(strings.TrimSpace(d.Email)) }, MsgEmail},
	}},
	{FieldWeight, []check{
		{func(d Draft) bool { return !weightOK(d.Weight) }, MsgWeight},
	}},
	{FieldAge, []check{
		{func(d Draft) bool { return !ageOK(d.Age) }, MsgAge},
	}},
	{FieldCaptchaToken, []check{
		{func(d Draft) bool { return d.CaptchaToken == "" }, MsgCaptchaRequired},
	}},
}

var rulesByField = func() map[Field][]check {
	m := make(map[Field][]check, len(rules))
	for _, r := range rules {
		m[r.field] = r.checks
	}
	return m
}()

// KnownField indica si f tiene regla.
func KnownField(f Field) bool {
	_, ok := rulesByField[f]
	return ok
}

// ValidateField aplica solo la regla de f sobre el draft. No evalúa reglas
// entre campos (p.ej. que el horario siga disponible).
// Devuelve *FieldError o nil; un campo desconocido es válido.
func ValidateField(f Field, d Draft) error {
	for _, c := range rulesByField[f] {
		if c.fails(d) {
			return &FieldError{Field: f, Message: c.msg}
		}
	}
	return nil
}

// ValidateAll aplica todas las reglas por campo y luego las reglas cruzadas:
//   - el horario elegido existe en la disponibilidad y está libre
//   - los servicios elegidos siguen en el catálogo (solo si el catálogo tiene datos)
//
// Una regla cruzada no pisa un error por campo ya presente.
func ValidateAll(d Draft, services catalog.Catalog, avail availability.Map) FieldErrors {
	errs := FieldErrors{}
	for _, r := range rules {
		if err := ValidateField(r.field, d); err != nil {
			errs[r.field] = err.(*FieldError).Message
		}
	}

	if _, ok := errs[FieldSlot]; !ok {
		date, hour, ok := availability.SplitSlotKey(d.SelectedSlot)
		if !ok || !avail.Bookable(date, hour) {
			errs[FieldSlot] = MsgSlotUnavailable
		}
	}

	if _, ok := errs[FieldServices]; !ok && len(services) > 0 {
		for _, id := range d.SelectedServiceIDs {
			if _, found := services.Find(id); !found {
				errs[FieldServices] = MsgServicesGone
				break
			}
		}
	}

	return errs
}

func tooShort(s string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) < minNameChars
}

// phoneOK cuenta solo dígitos: "+56 9 1234 5678" tiene 11.
func phoneOK(s string) bool {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n >= minPhoneDigits && n <= maxPhoneDigits
}

// weightOK: vacío = no informado. Acepta coma decimal.
func weightOK(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v > 0 && v <= maxWeightKg
}

// ageOK: vacío = no informado; entero en años.
func ageOK(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	return v >= 0 && v <= maxAgeYears
}
