package contact

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/contact", submitHandler(svc))
}

// submitHandler godoc
// @Summary Enviar formulario de contacto
// @Description Valida (422 con errors por campo) y reenvía al backend de contacto. 502 con message si el backend rechaza.
// @Tags contact
// @Accept json
// @Produce json
// @Param body body Form true "Formulario"
// @Success 200 {object} Result
// @Failure 400 {string} string "invalid json"
// @Failure 422 {object} Result
// @Failure 502 {object} Result
// @Router /contact [post]
func submitHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in Form
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		res, err := svc.Submit(r.Context(), in)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, res)
		case errors.Is(err, ErrInvalidForm):
			writeJSON(w, http.StatusUnprocessableEntity, res)
		case errors.Is(err, ErrSendFailed):
			writeJSON(w, http.StatusBadGateway, res)
		default:
			http.Error(w, "could not send contact form", http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
