package availability

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/availability", weekHandler(svc))
}

// DayView es un día listo para el front: todos los slots más los visibles según expansión.
type DayView struct {
	Date         string `json:"date"`
	Label        string `json:"label"`
	Slots        []Slot `json:"slots"`
	VisibleSlots []Slot `json:"visibleSlots"`
	HiddenCount  int    `json:"hiddenCount"`
}

type weekResponse struct {
	Days []DayView `json:"days"`
}

// weekHandler godoc
// @Summary Disponibilidad de la semana
// @Description Días y horas reservables, filtrados respecto de la hora actual en la zona de la clínica. Lista vacía = sin disponibilidad (no es error).
// @Tags availability
// @Produce json
// @Success 200 {object} weekResponse
// @Failure 502 {string} string "cms unavailable"
// @Router /availability [get]
func weekHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, err := svc.Week(r.Context())
		if err != nil {
			http.Error(w, "cms unavailable", http.StatusBadGateway)
			return
		}

		out := weekResponse{Days: make([]DayView, 0, len(days))}
		for _, d := range days {
			out.Days = append(out.Days, NewDayView(d, false))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// NewDayView arma la vista de un día según esté expandido o no.
func NewDayView(d Day, expanded bool) DayView {
	return DayView{
		Date:         d.Date,
		Label:        d.Label,
		Slots:        d.Slots,
		VisibleSlots: d.Visible(expanded),
		HiddenCount:  d.Hidden(expanded),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
