package availability

import "strings"

const (
	dateLayout = "2006-01-02"
	hourLayout = "15:04"

	// slotKeySep separa fecha y hora en la clave de un slot: "2025-11-07::09:00".
	slotKeySep = "::"
)

// Slot es una hora del día con su disponibilidad (false = ya reservada).
type Slot struct {
	Hour         string `json:"hour"`
	Availability bool   `json:"availability"`
}

// Map es la disponibilidad semanal tal como la entrega el CMS: fecha ISO -> horas.
type Map map[string][]Slot

// Bookable indica si (date, hour) existe en el mapa y está disponible.
func (m Map) Bookable(date, hour string) bool {
	for _, s := range m[date] {
		if s.Hour == hour {
			return s.Availability
		}
	}
	return false
}

// SlotKey arma la clave compuesta date::hour.
func SlotKey(date, hour string) string {
	return date + slotKeySep + hour
}

// SplitSlotKey separa una clave date::hour. ok=false si no tiene el formato esperado.
func SplitSlotKey(key string) (date, hour string, ok bool) {
	date, hour, ok = strings.Cut(key, slotKeySep)
	if !ok || date == "" || hour == "" {
		return "", "", false
	}
	return date, hour, true
}
