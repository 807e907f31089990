package appointments

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vet-clinic-web/internal/domain/availability"
	"vet-clinic-web/internal/domain/catalog"
)

// ServiceRef es un id de servicio tal como lo espera el backend: número JSON si
// el id es numérico, string en otro caso.
type ServiceRef string

func (r ServiceRef) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(r), 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(r))
}

func (r *ServiceRef) UnmarshalJSON(b []byte) error {
	var id catalog.ID
	if err := id.UnmarshalJSON(b); err != nil {
		return err
	}
	*r = ServiceRef(id)
	return nil
}

// Payload es el cuerpo de POST /appointments.
type Payload struct {
	PetType      string       `json:"petType"`
	PetSex       string       `json:"petSex"`
	PetName      string       `json:"petName"`
	Services     []ServiceRef `json:"services"`
	Comment      string       `json:"comment"`
	Date         string       `json:"date"`
	Time         string       `json:"time"`
	RUT          string       `json:"rut"`
	FirstName    string       `json:"firstName"`
	LastName     string       `json:"lastName"`
	Phone        string       `json:"phone"`
	Email        string       `json:"email"`
	Weight       *float64     `json:"weight,omitempty"`
	Age          *int         `json:"age,omitempty"`
	CaptchaToken string       `json:"captchaToken"`
}

// SlotKey vuelve a armar la clave date::hour del payload.
func (p Payload) SlotKey() string {
	return availability.SlotKey(p.Date, p.Time)
}

// BuildPayload normaliza un draft ya validado. Solo falla si el horario no tiene
// la forma date::hour o si weight/age no son numéricos.
func BuildPayload(d Draft) (Payload, error) {
	date, hour, ok := availability.SplitSlotKey(d.SelectedSlot)
	if !ok {
		return Payload{}, fmt.Errorf("%w: selectedSlot %q", ErrInvalidValue, d.SelectedSlot)
	}

	p := Payload{
		PetType:      d.PetType,
		PetSex:       d.PetSex,
		PetName:      strings.TrimSpace(d.PetName),
		Services:     make([]ServiceRef, 0, len(d.SelectedServiceIDs)),
		Comment:      strings.TrimSpace(d.Comment),
		Date:         date,
		Time:         hour,
		RUT:          strings.ToUpper(d.RUT),
		FirstName:    strings.TrimSpace(d.FirstName),
		LastName:     strings.TrimSpace(d.LastName),
		Phone:        strings.TrimSpace(d.Phone),
		Email:        strings.TrimSpace(d.Email),
		CaptchaToken: d.CaptchaToken,
	}
	for _, id := range d.SelectedServiceIDs {
		p.Services = append(p.Services, ServiceRef(id))
	}

	if w := strings.TrimSpace(d.Weight); w != "" {
		v, err := strconv.ParseFloat(strings.Replace(w, ",", ".", 1), 64)
		if err != nil {
			return Payload{}, fmt.Errorf("%w: weight %q", ErrInvalidValue, d.Weight)
		}
		p.Weight = &v
	}
	if a := strings.TrimSpace(d.Age); a != "" {
		v, err := strconv.Atoi(a)
		if err != nil {
			return Payload{}, fmt.Errorf("%w: age %q", ErrInvalidValue, d.Age)
		}
		p.Age = &v
	}

	return p, nil
}

// ReviewService es un servicio ya resuelto contra el catálogo.
type ReviewService struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price int64  `json:"price"`
}

// Review es la vista de confirmación (solo lectura) previa al envío.
type Review struct {
	PetType    string          `json:"petType"`
	PetSex     string          `json:"petSex"`
	PetName    string          `json:"petName"`
	Services   []ReviewService `json:"services"`
	Comment    string          `json:"comment,omitempty"`
	Date       string          `json:"date"`
	Hour       string          `json:"hour"`
	DayLabel   string          `json:"dayLabel"`
	RUT        string          `json:"rut"`
	FirstName  string          `json:"firstName"`
	LastName   string          `json:"lastName"`
	Phone      string          `json:"phone"`
	Email      string          `json:"email"`
	Weight     string          `json:"weight,omitempty"`
	Age        string          `json:"age,omitempty"`
	TotalPrice int64           `json:"totalPrice"`
}

// BuildReview arma la confirmación con títulos de servicio en vez de ids.
// Ids que ya no están en el catálogo se muestran con el id como título y precio 0.
func BuildReview(d Draft, services catalog.Catalog, loc *time.Location) Review {
	date, hour, _ := availability.SplitSlotKey(d.SelectedSlot)

	r := Review{
		PetType:    d.PetType,
		PetSex:     d.PetSex,
		PetName:    strings.TrimSpace(d.PetName),
		Services:   make([]ReviewService, 0, len(d.SelectedServiceIDs)),
		Comment:    strings.TrimSpace(d.Comment),
		Date:       date,
		Hour:       hour,
		RUT:        d.RUT,
		FirstName:  strings.TrimSpace(d.FirstName),
		LastName:   strings.TrimSpace(d.LastName),
		Phone:      strings.TrimSpace(d.Phone),
		Email:      strings.TrimSpace(d.Email),
		Weight:     strings.TrimSpace(d.Weight),
		Age:        strings.TrimSpace(d.Age),
		TotalPrice: services.TotalPrice(d.SelectedServiceIDs),
	}

	for _, id := range d.SelectedServiceIDs {
		s, ok := services.Find(id)
		if !ok {
			r.Services = append(r.Services, ReviewService{ID: id, Title: id})
			continue
		}
		r.Services = append(r.Services, ReviewService{ID: id, Title: s.Title, Price: s.Price})
	}

	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation("2006-01-02", date, loc); err == nil {
		r.DayLabel = availability.Label(t)
	}

	return r
}
