package httpclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// bodyCarrier lo implementan errores que conservan el body de la respuesta (p.ej. *HTTPError).
type bodyCarrier interface {
	ResponseBody() []byte
}

// MessageFromBody extrae un texto legible del body de una respuesta:
// string JSON, campo "message" de un objeto, JSON compactado, o el texto crudo.
// Un body vacío (o null) devuelve fallback.
func MessageFromBody(raw []byte, fallback string) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}

	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if msg, ok := t["message"].(string); ok {
			return msg
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return fallback
	}
	return buf.String()
}

// ErrorMessage extrae el mensaje de un error de request: primero el body de la
// respuesta de error (si lo hay), después el mensaje del error de transporte.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var bc bodyCarrier
	if errors.As(err, &bc) {
		if body := bytes.TrimSpace(bc.ResponseBody()); len(body) > 0 {
			return MessageFromBody(body, fallback)
		}
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}
