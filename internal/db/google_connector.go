package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/pgseed/internal/retry"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// GoogleCloudSQLConnector implements the Connector interface for Google Cloud SQL
// using IAM database authentication via the Cloud SQL Go Connector.
//
// Implements io.Closer: Scope calls Close after the session is closed to
// release the Cloud SQL dialer.
type GoogleCloudSQLConnector struct {
	config        *pgseed.ConnectionConfig
	instance      string
	dialer        *cloudsqlconn.Dialer
	retryExecutor *retry.Executor
}

// NewGoogleCloudSQLConnector creates a connector for Google Cloud SQL IAM authentication.
// instance is the instance connection name in format: project:region:instance
func NewGoogleCloudSQLConnector(config *pgseed.ConnectionConfig, instance string) *GoogleCloudSQLConnector {
	return &GoogleCloudSQLConnector{
		config:        config,
		instance:      instance,
		retryExecutor: retry.NewConnectExecutor(config.ConnectRetries),
	}
}

// Connect opens a session through the Cloud SQL dialer. The dialer handles
// IAM authentication and TLS; the DSN therefore disables libpq SSL.
func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (*pgx.Conn, error) {
	if c.dialer == nil {
		dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
		if err != nil {
			return nil, fmt.Errorf("failed to create Cloud SQL dialer: %w", err)
		}
		c.dialer = dialer
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s dbname=%s sslmode=disable application_name=%s",
		c.instance,
		c.config.Username,
		c.config.Database,
		appNameOrDefault(c.config.AppName),
	)

	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	dialer := c.dialer
	connConfig.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(ctx, c.instance)
	}

	var conn *pgx.Conn
	err = c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		conn, err = openConn(ctx, connConfig, c.config)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Close releases the Cloud SQL dialer resources.
// Must be called after the session returned by Connect is closed.
func (c *GoogleCloudSQLConnector) Close() error {
	if c.dialer != nil {
		err := c.dialer.Close()
		c.dialer = nil
		return err
	}
	return nil
}

func appNameOrDefault(name string) string {
	if name == "" {
		return pgseed.DefaultAppName
	}
	return name
}
