package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/services", listServicesHandler(svc))

	r.Route("/products", func(pr chi.Router) {
		pr.Get("/", listProductsHandler(svc))
		pr.Get("/latest", latestProductsHandler(svc))
		pr.Get("/{productID}", getProductHandler(svc))
	})
}

type servicesResponse struct {
	Docs []ServiceEntry `json:"docs"`
}

type productsResponse struct {
	Docs       []Product `json:"docs"`
	Total      int       `json:"total"`
	Categories []string  `json:"categories"`
}

// listServicesHandler godoc
// @Summary Catálogo de servicios
// @Description Servicios veterinarios reservables, tal como los publica el CMS.
// @Tags catalog
// @Produce json
// @Success 200 {object} servicesResponse
// @Failure 502 {string} string "cms unavailable"
// @Router /services [get]
func listServicesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.Services(r.Context())
		if err != nil {
			http.Error(w, "cms unavailable", http.StatusBadGateway)
			return
		}
		if items == nil {
			items = Catalog{}
		}
		writeJSON(w, http.StatusOK, servicesResponse{Docs: items})
	}
}

// listProductsHandler godoc
// @Summary Listar productos
// @Description Lista productos con búsqueda por texto, filtro de categoría y orden.
// @Tags catalog
// @Produce json
// @Param search query string false "Texto a buscar en nombre/descripción"
// @Param category query string false "Categoría (all = todas)"
// @Param sort query string false "none, price-asc, price-desc, name-asc, name-desc"
// @Param limit query int false "Máximo de productos"
// @Success 200 {object} productsResponse
// @Failure 502 {string} string "cms unavailable"
// @Router /products [get]
func listProductsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit := 0
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
				return
			}
			limit = n
		}

		all, err := svc.Products(r.Context(), ProductQuery{})
		if err != nil {
			http.Error(w, "cms unavailable", http.StatusBadGateway)
			return
		}

		filtered := FilterProducts(all, ProductQuery{
			Search:   q.Get("search"),
			Category: q.Get("category"),
			Sort:     ParseSortOrder(q.Get("sort")),
			Limit:    limit,
		})

		writeJSON(w, http.StatusOK, productsResponse{
			Docs:       filtered,
			Total:      len(filtered),
			Categories: Categories(all),
		})
	}
}

func latestProductsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.LatestProducts(r.Context(), 3)
		if err != nil {
			http.Error(w, "cms unavailable", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// getProductHandler godoc
// @Summary Detalle de producto
// @Tags catalog
// @Produce json
// @Param productID path string true "ID del producto"
// @Success 200 {object} Product
// @Failure 404 {string} string "product not found"
// @Failure 502 {string} string "cms unavailable"
// @Router /products/{productID} [get]
func getProductHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Product(r.Context(), chi.URLParam(r, "productID"))
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidInput):
				http.Error(w, "product not found", http.StatusNotFound)
			default:
				http.Error(w, "cms unavailable", http.StatusBadGateway)
			}
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
