package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration values.
type Config struct {
	Secret      string
	DatabaseDSN string
	HTTPPort    string
	CatalogCSV  string
	LogLevel    string
	Env         string
	CORSOrigins []string
	TokenTTL    time.Duration

	// CatalogCompanyID is the company the seed catalog is imported into.
	CatalogCompanyID int64
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "dev_secret"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "pharmalink.db"
	}

	level := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "production"
	}

	origins := []string{"*"}
	if raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); raw != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	ttl := 24 * time.Hour
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			log.Printf("invalid TOKEN_TTL value %q, defaulting to %s", raw, ttl)
		} else {
			ttl = parsed
		}
	}

	var catalogCompany int64
	if raw := os.Getenv("CATALOG_COMPANY_ID"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			log.Printf("invalid CATALOG_COMPANY_ID value %q, catalog seeding disabled", raw)
		} else {
			catalogCompany = parsed
		}
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	return Config{
		Secret:           secret,
		DatabaseDSN:      dsn,
		HTTPPort:         port,
		CatalogCSV:       os.Getenv("CATALOG_CSV"),
		CatalogCompanyID: catalogCompany,
		LogLevel:         level,
		Env:              env,
		CORSOrigins:      origins,
		TokenTTL:         ttl,
	}
}

// Development reports whether the service runs with developer defaults.
func (c Config) Development() bool {
	return c.Env == "development" || c.Env == "dev"
}
