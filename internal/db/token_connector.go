package db

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/pgseed/internal/retry"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// tokenExpiryWarning is the remaining lifetime below which a warning is printed.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector implements the Connector interface for cloud providers
// that authenticate via short-lived tokens (AWS IAM, Azure Entra ID).
// The token is acquired from a TokenProvider and used as the PostgreSQL password.
type TokenBasedConnector struct {
	config        *pgseed.ConnectionConfig
	tokenProvider TokenProvider
	retryExecutor *retry.Executor
	providerName  string
	warnings      io.Writer
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName is used in error/warning messages (e.g., "AWS IAM", "Azure").
func NewTokenBasedConnector(config *pgseed.ConnectionConfig, tokenProvider TokenProvider, providerName string) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		retryExecutor: retry.NewConnectExecutor(config.ConnectRetries),
		providerName:  providerName,
		warnings:      os.Stderr,
	}
}

// Connect acquires a fresh token for every attempt and opens a session with it.
func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgx.Conn, error) {
	var conn *pgx.Conn

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire %s token: %w", c.providerName, err)
		}

		if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
			fmt.Fprintf(c.warnings, "Warning: %s token expires in %v\n", c.providerName, remaining.Round(time.Second))
		}

		configWithToken := *c.config
		configWithToken.Password = token

		connConfig, err := pgx.ParseConfig(BuildConnectionString(&configWithToken))
		if err != nil {
			return fmt.Errorf("failed to parse connection config: %w", err)
		}

		conn, err = openConn(ctx, connConfig, c.config)
		return err
	})
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// String describes the connector without secrets.
func (c *TokenBasedConnector) String() string {
	return fmt.Sprintf("TokenBasedConnector(%s, %s)", c.providerName, c.tokenProvider)
}
