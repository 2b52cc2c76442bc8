package db

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// ConnectionFlags carries the connection settings the user supplied explicitly
// (flags, pgseed.yaml or PGSEED_* variables). Zero values mean "not set".
type ConnectionFlags struct {
	URL            string
	Host           string
	Port           int
	Username       string
	Password       string
	Database       string
	SSLMode        string
	AuthMethod     string
	AppName        string
	ConnectTimeout time.Duration
	ConnectRetries int

	AWSRegion      string
	GoogleInstance string
	AzureTenantID  string
	AzureClientID  string
}

// EnvVars represents PostgreSQL standard environment variables plus the
// cloud SDK variables the connectors honour.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST       string
	PGPORT       string
	PGUSER       string
	PGPASSWORD   string
	PGDATABASE   string
	PGSSLMODE    string
	DATABASE_URL string

	AWS_REGION string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
}

// LoadFromEnvironment reads EnvVars from the process environment.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:              os.Getenv("PGHOST"),
		PGPORT:              os.Getenv("PGPORT"),
		PGUSER:              os.Getenv("PGUSER"),
		PGPASSWORD:          os.Getenv("PGPASSWORD"),
		PGDATABASE:          os.Getenv("PGDATABASE"),
		PGSSLMODE:           os.Getenv("PGSSLMODE"),
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// ResolveConnection merges explicit settings, the environment and defaults.
//
// Precedence, highest first:
//  1. explicit fields in flags
//  2. flags.URL, else $DATABASE_URL
//  3. PGHOST, PGPORT, PGUSER, PGPASSWORD, PGDATABASE, PGSSLMODE
//  4. defaults: postgres:postgres@postgres:5432/postgres
//
// The resolved Database is the maintenance database used for CREATE/DROP DATABASE.
func ResolveConnection(flags *ConnectionFlags, env *EnvVars) (*pgseed.ConnectionConfig, error) {
	if flags == nil {
		flags = &ConnectionFlags{}
	}
	if env == nil {
		env = &EnvVars{}
	}

	cfg, err := baseConfig(flags.URL, env)
	if err != nil {
		return nil, err
	}

	overlay(&cfg.Host, flags.Host)
	if flags.Port != 0 {
		cfg.Port = flags.Port
	}
	overlay(&cfg.Username, flags.Username)
	overlay(&cfg.Password, flags.Password)
	overlay(&cfg.Database, flags.Database)
	overlay(&cfg.SSLMode, flags.SSLMode)
	overlay(&cfg.AppName, flags.AppName)
	if flags.ConnectTimeout > 0 {
		cfg.ConnectTimeout = flags.ConnectTimeout
	}
	cfg.ConnectRetries = flags.ConnectRetries

	method, err := pgseed.ParseAuthMethod(flags.AuthMethod)
	if err != nil {
		return nil, err
	}
	cfg.AuthMethod = method

	switch method {
	case pgseed.AuthMethodAWSIAM:
		cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION)
		cfg.Password = ""
	case pgseed.AuthMethodGoogleIAM:
		cfg.GoogleInstance = flags.GoogleInstance
		cfg.Password = ""
	case pgseed.AuthMethodAzureEntraID:
		applyAzureAuth(cfg, flags, env)
	}

	if cfg.Username == "" {
		cfg.Username = pgseed.DefaultUser
		if cfg.Password == "" && method == pgseed.AuthMethodStandard {
			cfg.Password = pgseed.DefaultPassword
		}
	}

	return cfg, nil
}

// baseConfig starts from a connection URL when one is given, else from the
// libpq environment layered over the defaults.
func baseConfig(url string, env *EnvVars) (*pgseed.ConnectionConfig, error) {
	if url = firstNonEmpty(url, env.DATABASE_URL); url != "" {
		cfg, err := ParseConnectionString(url)
		if err != nil {
			return nil, fmt.Errorf("connection URL: %w", err)
		}
		return cfg, nil
	}

	cfg := defaultConfig()
	overlay(&cfg.Host, env.PGHOST)
	overlay(&cfg.Username, env.PGUSER)
	overlay(&cfg.Password, env.PGPASSWORD)
	overlay(&cfg.Database, env.PGDATABASE)
	overlay(&cfg.SSLMode, env.PGSSLMODE)
	if env.PGPORT != "" {
		port, err := strconv.Atoi(env.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid PGPORT %q: %w", env.PGPORT, pgseed.ErrInvalidConfig)
		}
		cfg.Port = port
	}
	return cfg, nil
}

// applyAzureAuth fills the Entra ID parameters. Flags override AZURE_*
// variables; the client secret is only ever read from the environment.
func applyAzureAuth(cfg *pgseed.ConnectionConfig, flags *ConnectionFlags, env *EnvVars) {
	cfg.AzureTenantID = firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID)
	cfg.AzureClientID = firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID)
	cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	cfg.Password = ""
}

func overlay(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
