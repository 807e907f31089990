package submissions

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/submissions/recent", listRecentHandler(svc))
}

type recentResponse struct {
	Items []Record `json:"items"`
}

// listRecentHandler godoc
// @Summary Últimos envíos
// @Description Resultado de los últimos envíos de agenda y contacto (sin datos personales).
// @Tags submissions
// @Produce json
// @Param limit query int false "máximo de registros (default 20, máx 200)"
// @Success 200 {object} recentResponse
// @Failure 400 {string} string "invalid limit"
// @Failure 500 {string} string "could not list submissions"
// @Router /submissions/recent [get]
func listRecentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		items, err := svc.Recent(r.Context(), limit)
		if err != nil {
			http.Error(w, "could not list submissions", http.StatusInternalServerError)
			return
		}
		if items == nil {
			items = []Record{}
		}
		writeJSON(w, http.StatusOK, recentResponse{Items: items})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
