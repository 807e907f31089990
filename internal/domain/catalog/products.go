package catalog

import (
	"sort"
	"strings"
)

type SortOrder string

const (
	SortNone      SortOrder = "none"
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
	SortNameAsc   SortOrder = "name-asc"
	SortNameDesc  SortOrder = "name-desc"
)

// CategoryAll desactiva el filtro de categoría.
const CategoryAll = "all"

type ProductQuery struct {
	Search   string
	Category string
	Sort     SortOrder
	Limit    int // 0 = sin límite
}

func ParseSortOrder(s string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortPriceAsc:
		return SortPriceAsc
	case SortPriceDesc:
		return SortPriceDesc
	case SortNameAsc:
		return SortNameAsc
	case SortNameDesc:
		return SortNameDesc
	default:
		return SortNone
	}
}

// FilterProducts aplica búsqueda (nombre/descripción, sin distinguir mayúsculas),
// categoría y orden. No modifica el slice de entrada.
func FilterProducts(items []Product, q ProductQuery) []Product {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	category := strings.TrimSpace(q.Category)
	if strings.EqualFold(category, CategoryAll) {
		category = ""
	}

	out := make([]Product, 0, len(items))
	for _, p := range items {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	case SortNameAsc:
		sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	case SortNameDesc:
		sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Name) > strings.ToLower(out[j].Name) })
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// Latest devuelve los n productos con id numérico más alto (los más recientes en el CMS).
func Latest(items []Product, n int) []Product {
	out := append([]Product(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		a, okA := out[i].numericID()
		b, okB := out[j].numericID()
		if okA != okB {
			return okA
		}
		return a > b
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Categories lista las categorías presentes, ordenadas, sin repetir.
func Categories(items []Product) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, p := range items {
		c := strings.TrimSpace(p.Category)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
