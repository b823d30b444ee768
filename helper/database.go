package helper

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the PostgreSQL connection parameters.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration builds a configuration from environment variables,
// loading a .env file first if one is present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	// A missing .env file is fine, the variables may be set directly.
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		Database: os.Getenv("DB_DATABASE"),
		Username: os.Getenv("DB_USERNAME"),
		Password: os.Getenv("DB_PASSWORD"),
		Schema:   os.Getenv("DB_SCHEMA"),
		SSLMode:  os.Getenv("DB_SSLMODE"),
	}

	if config.Host == "" || config.Port == "" || config.Database == "" || config.Username == "" {
		return nil, fmt.Errorf("incomplete database configuration, need DB_HOST, DB_PORT, DB_DATABASE and DB_USERNAME")
	}
	if config.Schema == "" {
		config.Schema = "public"
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config, nil
}

// ConnectionString renders the lib/pq connection string.
func (c *DatabaseConfiguration) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode, c.Schema,
	)
}

// Database wraps the sql.DB instance together with its logger.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens and pings a PostgreSQL connection.
// It panics when the database is unreachable, there is no sensible way to
// continue without storage.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	instance, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		log.Panicf("error opening database connection: %v", err)
	}

	if err := instance.Ping(); err != nil {
		log.Panicf("error pinging database: %v", err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("database", config.Database))

	return &Database{
		Name:     name,
		Instance: instance,
		Logger:   logger,
	}
}

// NewTestDatabase opens a connection with a quiet logger for tests.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	opts := PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelWarn,
		},
	}
	logger := slog.New(NewPrettyHandler(os.Stdout, opts))
	return NewDatabase("test", config, logger)
}
