package pgseed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// ConnectRetries is the number of retries on transient connect errors.
	ConnectRetries int

	// AWS IAM (AuthMethodAWSIAM)
	AWSRegion string

	// Google Cloud SQL IAM (AuthMethodGoogleIAM), format project:region:instance
	GoogleInstance string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// If none are provided, DefaultAzureCredential chain is used (env vars, managed identity, CLI, etc.)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// WithDatabase returns a copy of the config bound to another database.
func (c *ConnectionConfig) WithDatabase(name string) *ConnectionConfig {
	clone := *c
	clone.Database = name
	if c.AdditionalParams != nil {
		clone.AdditionalParams = make(map[string]string, len(c.AdditionalParams))
		for k, v := range c.AdditionalParams {
			clone.AdditionalParams[k] = v
		}
	}
	return &clone
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// ParseAuthMethod converts a settings value ("standard", "aws", "google",
// "azure") into an AuthMethod. The empty string means standard.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "aws", "aws-iam", "aws_iam":
		return AuthMethodAWSIAM, nil
	case "google", "google-iam", "google_iam", "gcp":
		return AuthMethodGoogleIAM, nil
	case "azure", "azure-entra-id", "entra":
		return AuthMethodAzureEntraID, nil
	default:
		return AuthMethodStandard, fmt.Errorf("%q: %w", s, ErrUnsupportedAuthMethod)
	}
}

// Policy selects how existing databases and schemas are treated.
type Policy int

const (
	// PolicyRecreate drops databases and schemas (cascade) before creating
	// them again. Every run starts from an empty target.
	PolicyRecreate Policy = iota

	// PolicyPreserve only creates missing databases and schemas. Existing
	// objects are kept; tables are still truncated before each load.
	PolicyPreserve
)

// String returns the settings spelling of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyRecreate:
		return "recreate"
	case PolicyPreserve:
		return "preserve"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// IsDestructive reports whether the policy drops existing objects.
func (p Policy) IsDestructive() bool {
	return p == PolicyRecreate
}

// ParsePolicy parses "recreate" or "preserve". The empty string means recreate.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "recreate":
		return PolicyRecreate, nil
	case "preserve":
		return PolicyPreserve, nil
	default:
		return PolicyRecreate, fmt.Errorf("unknown policy %q (want recreate or preserve): %w", s, ErrInvalidConfig)
	}
}

// RunOptions controls a single orchestration run.
type RunOptions struct {
	// Connection is the base connection; the database field is replaced per scope.
	Connection *ConnectionConfig

	// Policy selects destructive or preserving DDL.
	Policy Policy

	// Only restricts the run to these databases (empty = all).
	Only []string

	// SkipLoad creates structure without loading CSV data.
	SkipLoad bool

	// RunID identifies the run in the report; uuid.Nil means generate one.
	RunID uuid.UUID
}

// Validate checks if the RunOptions have all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (o *RunOptions) Validate() error {
	var errs []error

	if o.Connection == nil {
		errs = append(errs, fmt.Errorf("Connection is required: %w", ErrInvalidConfig))
	} else {
		if o.Connection.Host == "" && o.Connection.AuthMethod != AuthMethodGoogleIAM {
			errs = append(errs, fmt.Errorf("host is required: %w", ErrInvalidConfig))
		}
		if o.Connection.Database == "" {
			errs = append(errs, fmt.Errorf("maintenance database is required: %w", ErrInvalidConfig))
		}
		if !o.Connection.AuthMethod.IsValid() {
			errs = append(errs, fmt.Errorf("auth method %v: %w", o.Connection.AuthMethod, ErrUnsupportedAuthMethod))
		}
		if o.Connection.ConnectRetries < 0 {
			errs = append(errs, fmt.Errorf("connect retries cannot be negative: %w", ErrInvalidConfig))
		}
	}

	if o.Policy != PolicyRecreate && o.Policy != PolicyPreserve {
		errs = append(errs, fmt.Errorf("unknown policy %v: %w", o.Policy, ErrInvalidConfig))
	}

	return errors.Join(errs...)
}
