package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/pgseed/internal/retry"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// ConnectorFactory builds a Connector for a connection config.
// NewConnector is the production implementation; tests substitute doubles.
type ConnectorFactory func(config *pgseed.ConnectionConfig) (pgseed.Connector, error)

// StandardConnector implements the Connector interface for standard
// username/password authentication with optional retry on transient failures.
type StandardConnector struct {
	config        *pgseed.ConnectionConfig
	retryExecutor *retry.Executor
}

// NewStandardConnector creates a new StandardConnector with the given configuration.
// The retry budget comes from config.ConnectRetries (0 means a failed connect
// is reported immediately).
func NewStandardConnector(config *pgseed.ConnectionConfig) *StandardConnector {
	return &StandardConnector{
		config:        config,
		retryExecutor: retry.NewConnectExecutor(config.ConnectRetries),
	}
}

// Connect opens a single session using standard authentication.
func (c *StandardConnector) Connect(ctx context.Context) (*pgx.Conn, error) {
	connConfig, err := pgx.ParseConfig(BuildConnectionString(c.config))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
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

// openConn connects and pings. The session is closed again if the ping fails.
func openConn(ctx context.Context, connConfig *pgx.ConnConfig, config *pgseed.ConnectionConfig) (*pgx.Conn, error) {
	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx) //nolint:errcheck
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}
	return conn, nil
}

// NewConnector is a factory function that creates the appropriate Connector
// based on the ConnectionConfig's AuthMethod.
func NewConnector(config *pgseed.ConnectionConfig) (pgseed.Connector, error) {
	switch config.AuthMethod {
	case pgseed.AuthMethodStandard:
		return NewStandardConnector(config), nil
	case pgseed.AuthMethodAWSIAM:
		return newAWSConnector(config)
	case pgseed.AuthMethodGoogleIAM:
		return newGoogleConnector(config)
	case pgseed.AuthMethodAzureEntraID:
		return newAzureConnector(config)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, pgseed.ErrUnsupportedAuthMethod)
	}
}

// connectionError carries operator guidance for a failed connect. It matches
// both pgseed.ErrConnectionFailed and the driver error under errors.Is.
type connectionError struct {
	guidance string
	err      error
}

func (e *connectionError) Error() string {
	if e.guidance == "" {
		return "failed to connect to database: " + e.err.Error()
	}
	return e.guidance + "\n\nOriginal error: " + e.err.Error()
}

func (e *connectionError) Unwrap() []error {
	return []error{pgseed.ErrConnectionFailed, e.err}
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	var guidance string
	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		guidance = fmt.Sprintf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port (the default host is "postgres", set --host or $PGHOST)`, addr, host, port)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		guidance = fmt.Sprintf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - The loader runs outside the compose network that provides "postgres"`, host)

	case strings.Contains(errStr, "password authentication failed"):
		guidance = fmt.Sprintf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or --password)
  - Wrong username`, database)

	case strings.Contains(errStr, "does not exist"):
		guidance = fmt.Sprintf(`database "%s" does not exist

Target databases are created from the maintenance database; check that the
catalog lists it and that the create step succeeded.`, database)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		guidance = fmt.Sprintf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets`, addr)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		guidance = `SSL/TLS connection error

Possible causes:
  - Server requires SSL but --sslmode is wrong
  - Certificate verification failed (try --sslmode=require)`

	case strings.Contains(errStr, "too many connections"):
		guidance = fmt.Sprintf(`too many connections to database "%s"

Try: SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = '%s';`, database, database)
	}

	return &connectionError{guidance: guidance, err: err}
}

// newAWSConnector creates a token-based connector with the AWS IAM token provider.
func newAWSConnector(config *pgseed.ConnectionConfig) (pgseed.Connector, error) {
	endpoint := fmt.Sprintf("%s:%d", config.Host, config.Port)

	tokenProvider, err := NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS IAM token provider: %w", err)
	}

	return NewTokenBasedConnector(config, tokenProvider, "AWS IAM"), nil
}

// newGoogleConnector creates a GoogleCloudSQLConnector for Google Cloud SQL IAM authentication.
func newGoogleConnector(config *pgseed.ConnectionConfig) (pgseed.Connector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", pgseed.ErrInvalidConfig)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires a username: %w", pgseed.ErrInvalidConfig)
	}

	return NewGoogleCloudSQLConnector(config, config.GoogleInstance), nil
}

// newAzureConnector creates a token-based connector with the Azure Entra ID token provider.
// If explicit credentials (tenant, client, secret) are provided, uses Service Principal auth.
// Otherwise, falls back to DefaultAzureCredential chain.
func newAzureConnector(config *pgseed.ConnectionConfig) (pgseed.Connector, error) {
	var tokenProvider TokenProvider
	var err error

	if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
		tokenProvider, err = NewAzureServicePrincipalProvider(
			config.AzureTenantID,
			config.AzureClientID,
			config.AzureClientSecret,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Service Principal provider: %w", err)
		}
	} else {
		tokenProvider, err = NewAzureDefaultCredentialProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Default Credential provider: %w", err)
		}
	}

	return NewTokenBasedConnector(config, tokenProvider, "Azure"), nil
}
