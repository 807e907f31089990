package availability

import (
	"fmt"
	"sort"
	"time"
)

// DefaultVisibleLimit son los slots visibles de un día antes de expandirlo (3 filas x 4 columnas).
const DefaultVisibleLimit = 12

var weekdays = [...]string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}

// Day es un día reservable ya filtrado y listo para mostrar.
type Day struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Slots []Slot `json:"slots"`

	visibleLimit int
}

// Visible devuelve los slots a mostrar; sin expandir, solo los primeros VisibleLimit.
func (d Day) Visible(expanded bool) []Slot {
	if expanded || d.visibleLimit <= 0 || len(d.Slots) <= d.visibleLimit {
		return d.Slots
	}
	return d.Slots[:d.visibleLimit]
}

// Hidden cuenta los slots que quedan ocultos hasta expandir el día.
func (d Day) Hidden(expanded bool) int {
	return len(d.Slots) - len(d.Visible(expanded))
}

// Projector convierte el Map del CMS en días reservables relativos a "ahora"
// en la zona horaria civil de la clínica (no la del visitante).
type Projector struct {
	Location     *time.Location
	Now          func() time.Time
	VisibleLimit int
}

func NewProjector(loc *time.Location) *Projector {
	if loc == nil {
		loc = time.UTC
	}
	return &Projector{
		Location:     loc,
		Now:          time.Now,
		VisibleLimit: DefaultVisibleLimit,
	}
}

// Project filtra y ordena la disponibilidad:
//   - días anteriores a hoy se descartan completos
//   - hoy conserva solo horas >= ahora (precisión de minuto)
//   - días futuros conservan todas sus horas
//   - días sin horas tras el filtro se descartan
//
// La disponibilidad (reservado o no) es un atributo de display, no un filtro.
// Claves de fecha inválidas se devuelven en skipped para que el caller las registre.
func (p *Projector) Project(m Map) (days []Day, skipped []string) {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	nowFn := p.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	now := nowFn().In(loc).Truncate(time.Minute)
	today := now.Format(dateLayout)

	days = make([]Day, 0, len(m))
	for date, hours := range m {
		day, err := time.ParseInLocation(dateLayout, date, loc)
		if err != nil {
			skipped = append(skipped, date)
			continue
		}
		key := day.Format(dateLayout)
		if key < today {
			continue
		}

		var kept []Slot
		if key == today {
			kept = make([]Slot, 0, len(hours))
			for _, h := range hours {
				at, err := time.ParseInLocation(dateLayout+" "+hourLayout, key+" "+h.Hour, loc)
				if err != nil {
					continue
				}
				if !at.Before(now) {
					kept = append(kept, h)
				}
			}
		} else {
			kept = append([]Slot(nil), hours...)
		}

		if len(kept) == 0 {
			continue
		}

		days = append(days, Day{
			Date:         date,
			Label:        Label(day),
			Slots:        kept,
			visibleLimit: p.VisibleLimit,
		})
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	sort.Strings(skipped)
	return days, skipped
}

// Label formatea un día como "Viernes 07/11".
func Label(day time.Time) string {
	return fmt.Sprintf("%s %02d/%02d", weekdays[day.Weekday()], day.Day(), int(day.Month()))
}
