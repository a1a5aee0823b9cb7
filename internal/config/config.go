package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/sweetshop/internal/es"
	"github.com/Skotchmaster/sweetshop/internal/service"
	pkgcfg "github.com/Skotchmaster/sweetshop/pkg/config"
	pkgdb "github.com/Skotchmaster/sweetshop/pkg/db"
)

type Config struct {
	ServiceName string
	Port        string
	LogLevel    string

	DBDriver    string
	DatabaseURL string

	JWTSecret      []byte
	JWTTTL         time.Duration
	PasswordScheme string

	Admin service.AdminAccount

	KafkaBrokers []string
	ES           es.Config
	CORSOrigins  []string
}

// Load reads the environment. The .env file, if any, must already be loaded.
func Load() (Config, error) {
	cfg := Config{
		ServiceName: pkgcfg.EnvDefault("SERVICE_NAME", "sweetshop"),
		Port:        pkgcfg.EnvDefault("SERVER_PORT", "8080"),
		LogLevel:    pkgcfg.EnvDefault("LOG_LEVEL", "info"),

		DBDriver:    strings.ToLower(pkgcfg.EnvDefault("DB_DRIVER", pkgdb.DriverPostgres)),
		DatabaseURL: pkgcfg.EnvDefault("DATABASE_URL", ""),

		JWTSecret:      []byte(pkgcfg.EnvDefault("JWT_SECRET", "")),
		JWTTTL:         pkgcfg.EnvDurationDefault("JWT_TTL", 24*time.Hour),
		PasswordScheme: pkgcfg.EnvDefault("PASSWORD_SCHEME", "sha256"),

		Admin: service.AdminAccount{
			Username: pkgcfg.EnvDefault("ADMIN_USERNAME", "admin"),
			Email:    pkgcfg.EnvDefault("ADMIN_EMAIL", "admin@sweetshop.com"),
			Password: pkgcfg.EnvDefault("ADMIN_PASSWORD", "admin123"),
		},

		KafkaBrokers: pkgcfg.CSV(pkgcfg.EnvDefault("KAFKA_BROKERS", "")),
		ES: es.Config{
			URL:      pkgcfg.EnvDefault("ES_URL", ""),
			User:     pkgcfg.EnvDefault("ES_USER", ""),
			Password: pkgcfg.EnvDefault("ES_PASSWORD", ""),
			Index:    pkgcfg.EnvDefault("ES_INDEX", "sweets"),
		},
		CORSOrigins: pkgcfg.CSV(pkgcfg.EnvDefault("CORS_ORIGINS", "*")),
	}

	if err := pkgcfg.Require(
		pkgcfg.Required{Env: "DATABASE_URL", Value: cfg.DatabaseURL},
		pkgcfg.Required{Env: "JWT_SECRET", Value: string(cfg.JWTSecret)},
	); err != nil {
		return Config{}, err
	}

	switch cfg.DBDriver {
	case pkgdb.DriverPostgres, pkgdb.DriverPQ, pkgdb.DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
	return cfg, nil
}
