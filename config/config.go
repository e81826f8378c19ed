package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/juju/errors"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultAddr = ":5000"
	defaultDSN  = "host=localhost port=5432 user=postgres password=postgres dbname=easychore sslmode=disable"
)

type Config struct {
	Addr        string
	DBDriver    string
	DBDSN       string
	JWTSecret   string
	JWTIssuer   string
	StrictSplit bool
	EventBuffer int
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env file", "error", err)
	}

	cfg := Config{
		Addr:        getenv("EASYCHORE_ADDR", defaultAddr),
		DBDriver:    getenv("EASYCHORE_DB_DRIVER", DriverPostgres),
		DBDSN:       getenv("EASYCHORE_DB_DSN", defaultDSN),
		JWTSecret:   os.Getenv("EASYCHORE_JWT_SECRET"),
		JWTIssuer:   os.Getenv("EASYCHORE_JWT_ISSUER"),
		StrictSplit: true,
		EventBuffer: 100,
	}

	if cfg.DBDriver != DriverPostgres && cfg.DBDriver != DriverSQLite {
		return Config{}, errors.NotValidf("database driver %q", cfg.DBDriver)
	}

	if v := os.Getenv("EASYCHORE_STRICT_SPLIT"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.NotValidf("EASYCHORE_STRICT_SPLIT %q", v)
		}
		cfg.StrictSplit = strict
	}

	if v := os.Getenv("EASYCHORE_EVENT_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, errors.NotValidf("EASYCHORE_EVENT_BUFFER %q", v)
		}
		cfg.EventBuffer = n
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
