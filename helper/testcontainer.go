package helper

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	testDatabase = "database"
	testUsername = "user"
	testPassword = "password"
)

// MustStartPostgresContainer starts a pgvector-enabled PostgreSQL container
// for integration tests. It returns the teardown function and the mapped port.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(
		ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUsername),
		postgres.WithPassword(testPassword),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, "", err
	}

	mappedPort, err := pgContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return pgContainer.Terminate, "", err
	}

	return pgContainer.Terminate, mappedPort.Port(), nil
}

// SetTestDatabaseConfigEnvs points the database configuration at the test
// container started by MustStartPostgresContainer.
func SetTestDatabaseConfigEnvs(t *testing.T, port string) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", port)
	t.Setenv("DB_DATABASE", testDatabase)
	t.Setenv("DB_USERNAME", testUsername)
	t.Setenv("DB_PASSWORD", testPassword)
	t.Setenv("DB_SCHEMA", "public")
	t.Setenv("DB_SSLMODE", "disable")
}
