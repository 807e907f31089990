package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultTimezone     = "America/Santiago"
	DefaultTurnstileURL = "https://challenges.cloudflare.com/turnstile/v0/api.js"
)

// Config agrupa la configuración del servicio.
// Las URLs y claves se tratan como strings opacos; cada adapter decide si está configurado.
type Config struct {
	Port      string
	AppName   string
	LogLevel  string
	LogFormat string

	CMSBaseURL     string
	ContactBaseURL string
	HTTPTimeout    time.Duration

	TurnstileSiteKey   string
	TurnstileScriptURL string

	ClinicTimezone  string
	CatalogCacheTTL time.Duration
	SessionIdleTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	DatabaseURL   string

	RateLimitPerMinute int
	RateLimitBurst     int

	OTLPEndpoint string
	OTLPInsecure bool
}

// Load lee .env (si existe) y luego variables de entorno.
// Un .env ausente no es error: en producción todo viene del entorno.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		AppName:   getEnv("APP_NAME", "vet-clinic-web"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		CMSBaseURL:     getEnv("CMS_API_URL", "http://localhost:3000"),
		ContactBaseURL: getEnv("CONTACT_API_URL", ""),
		HTTPTimeout:    getEnvAsDuration("HTTP_TIMEOUT", 10*time.Second),

		TurnstileSiteKey:   getEnv("TURNSTILE_SITE_KEY", ""),
		TurnstileScriptURL: getEnv("TURNSTILE_SCRIPT_URL", DefaultTurnstileURL),

		ClinicTimezone:  getEnv("CLINIC_TIMEZONE", DefaultTimezone),
		CatalogCacheTTL: getEnvAsDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		SessionIdleTTL:  getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure: getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false),
	}
}

// ContactURL devuelve la URL base del backend de contacto.
// Si no está definida, el formulario de contacto va al CMS.
func (c *Config) ContactURL() string {
	if strings.TrimSpace(c.ContactBaseURL) != "" {
		return c.ContactBaseURL
	}
	return c.CMSBaseURL
}

// Location resuelve la zona horaria civil de la clínica.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(strings.TrimSpace(c.ClinicTimezone))
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvAsBool(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
