package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID es un identificador del CMS. El CMS lo entrega como número o como string;
// internamente se maneja siempre como string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("catalog: id must be string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// ServiceEntry es un servicio veterinario ofrecido (consulta, vacunas, ...).
// Price está en la unidad mínima de la moneda (CLP no tiene decimales).
type ServiceEntry struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	Icon        string `json:"icon,omitempty"`
}

// Catalog es la lista de servicios tal como llegó del CMS.
type Catalog []ServiceEntry

func (c Catalog) Find(id string) (ServiceEntry, bool) {
	for _, s := range c {
		if string(s.ID) == id {
			return s, true
		}
	}
	return ServiceEntry{}, false
}

// TotalPrice suma el precio de los servicios seleccionados.
// Ids que ya no están en el catálogo aportan 0.
func (c Catalog) TotalPrice(ids []string) int64 {
	var total int64
	for _, id := range ids {
		if s, ok := c.Find(id); ok {
			total += s.Price
		}
	}
	return total
}

// ProductImage es una imagen de producto alojada en el CMS/CDN.
type ProductImage struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	AltText      string `json:"altText,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// Product es un producto de la tienda (alimentos, accesorios, ...).
type Product struct {
	ID          ID             `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category,omitempty"`
	Price       int64          `json:"price"`
	Discount    *int64         `json:"discount,omitempty"`
	OutOfStock  bool           `json:"outOfStock"`
	Images      []ProductImage `json:"images,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// numericID devuelve el id como entero para ordenar "últimos" productos.
// Ids no numéricos quedan al final.
func (p Product) numericID() (int64, bool) {
	n, err := strconv.ParseInt(string(p.ID), 10, 64)
	return n, err == nil
}
