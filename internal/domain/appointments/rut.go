package appointments

import (
	"regexp"
	"strings"
)

// rutPattern: 12.345.678-9 (dígito verificador K sin distinguir mayúsculas).
var rutPattern = regexp.MustCompile(`^\d{1,2}\.\d{3}\.\d{3}-[\dkK]$`)

// RUTFormatOK valida solo el formato con puntos y guion.
func RUTFormatOK(s string) bool {
	return rutPattern.MatchString(s)
}

// RUTCheckDigit calcula el dígito verificador (módulo 11) de un cuerpo de solo dígitos.
// Devuelve ok=false si body está vacío o tiene algo que no sea dígito.
func RUTCheckDigit(body string) (byte, bool) {
	if body == "" {
		return 0, false
	}

	sum := 0
	mult := 2
	for i := len(body) - 1; i >= 0; i-- {
		c := body[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		sum += int(c-'0') * mult
		if mult == 7 {
			mult = 2
		} else {
			mult++
		}
	}

	switch r := sum % 11; r {
	case 0:
		return '0', true
	case 1:
		return 'K', true
	default:
		return byte('0' + 11 - r), true
	}
}

// RUTChecksumOK compara el dígito verificador informado con el calculado.
// Ignora puntos y guion; no valida el formato.
func RUTChecksumOK(s string) bool {
	clean := strings.ToUpper(strings.NewReplacer(".", "", "-", "").Replace(s))
	if len(clean) < 2 {
		return false
	}
	body, dv := clean[:len(clean)-1], clean[len(clean)-1]
	want, ok := RUTCheckDigit(body)
	return ok && want == dv
}

// ValidRUT = formato + dígito verificador.
func ValidRUT(s string) bool {
	return RUTFormatOK(s) && RUTChecksumOK(s)
}
