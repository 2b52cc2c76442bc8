// Package testinfra starts disposable PostgreSQL servers for integration tests.
package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	PostgresImage    = "postgres:17-alpine"
	PostgresUser     = "postgres"
	PostgresPassword = "postgres"
	PostgresDB       = "postgres"
)

type PostgresContainer struct {
	*postgres.PostgresContainer
	ConnString string
}

// StartPostgres runs a plain server and returns a connection string to its
// maintenance database.
func StartPostgres(ctx context.Context) (*PostgresContainer, error) {
	return start(ctx, "sslmode=disable")
}

// StartTLSPostgres runs a server that serves TLS with certs. The returned
// connection string uses sslmode=require.
func StartTLSPostgres(ctx context.Context, certs *CertPaths) (*PostgresContainer, error) {
	return start(ctx, "sslmode=require",
		postgres.WithSSLCert(certs.CACert, certs.ServerCert, certs.ServerKey),
	)
}

func start(ctx context.Context, connArgs string, opts ...testcontainers.ContainerCustomizer) (*PostgresContainer, error) {
	opts = append([]testcontainers.ContainerCustomizer{
		postgres.WithUsername(PostgresUser),
		postgres.WithPassword(PostgresPassword),
		postgres.WithDatabase(PostgresDB),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		),
	}, opts...)

	ctr, err := postgres.Run(ctx, PostgresImage, opts...)
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}

	connStr, err := ctr.ConnectionString(ctx, connArgs)
	if err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	return &PostgresContainer{PostgresContainer: ctr, ConnString: connStr}, nil
}
