// Package config loads pgseed settings from, lowest precedence first:
// built-in defaults, pgseed.yaml, PGSEED_* environment variables and
// explicitly set command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/vvka-141/pgseed/internal/db"
	"github.com/vvka-141/pgseed/internal/source"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// ErrConfigNotFound is returned when an explicitly named settings file does
// not exist. Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

const (
	ConfigFileName    = "pgseed.yaml"
	ConfigFileNameAlt = "pgseed.yml"
	EnvPrefix         = "PGSEED_"
)

// ConnectionSettings mirrors db.ConnectionFlags. Empty values defer to the
// PG* environment and the built-in connection defaults.
type ConnectionSettings struct {
	URL            string        `koanf:"url"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	Username       string        `koanf:"username"`
	Password       string        `koanf:"password"`
	Database       string        `koanf:"database"`
	SSLMode        string        `koanf:"sslmode"`
	AuthMethod     string        `koanf:"auth_method"`
	AppName        string        `koanf:"app_name"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	ConnectRetries int           `koanf:"connect_retries"`
	AWSRegion      string        `koanf:"aws_region"`
	GoogleInstance string        `koanf:"google_instance"`
	AzureTenantID  string        `koanf:"azure_tenant_id"`
	AzureClientID  string        `koanf:"azure_client_id"`
}

// S3Settings configures s3:// sources.
type S3Settings struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Region    string `koanf:"region"`
	UseSSL    bool   `koanf:"use_ssl"`
}

// Settings is the fully merged configuration of one invocation.
type Settings struct {
	Connection ConnectionSettings `koanf:"connection"`
	S3         S3Settings         `koanf:"s3"`

	// Catalog is a YAML catalog path; empty selects the built-in catalog.
	Catalog string `koanf:"catalog"`
	// BaseDir anchors relative CSV sources of the built-in catalog.
	BaseDir string `koanf:"base_dir"`

	Policy   string        `koanf:"policy"`
	Only     []string      `koanf:"only"`
	SkipLoad bool          `koanf:"skip_load"`
	Strict   bool          `koanf:"strict"`
	Force    bool          `koanf:"force"`
	Timeout  time.Duration `koanf:"timeout"`

	Verbose   bool   `koanf:"verbose"`
	LogFormat string `koanf:"log_format"`
	Report    string `koanf:"report"`

	// File is the settings file that was read, if any.
	File string `koanf:"-"`
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// File names the settings file explicitly; it must exist.
	File string
	// Dir is searched for pgseed.yaml / pgseed.yml when File is empty.
	Dir string
	// Flags contributes every flag whose value was changed.
	Flags *pflag.FlagSet
}

// flagKeys maps flag names that do not follow the snake_case rule.
var flagKeys = map[string]string{
	"url":             "connection.url",
	"host":            "connection.host",
	"port":            "connection.port",
	"username":        "connection.username",
	"password":        "connection.password",
	"database":        "connection.database",
	"sslmode":         "connection.sslmode",
	"auth-method":     "connection.auth_method",
	"app-name":        "connection.app_name",
	"connect-timeout": "connection.connect_timeout",
	"connect-retries": "connection.connect_retries",
	"aws-region":      "connection.aws_region",
	"google-instance": "connection.google_instance",
	"azure-tenant-id": "connection.azure_tenant_id",
	"azure-client-id": "connection.azure_client_id",
	"s3-endpoint":     "s3.endpoint",
	"s3-access-key":   "s3.access_key",
	"s3-secret-key":   "s3.secret_key",
	"s3-region":       "s3.region",
	"s3-use-ssl":      "s3.use_ssl",
	"config":          "",
}

// Defaults returns the lowest configuration layer. Connection fields are
// absent; db.ResolveConnection fills them from PG* variables.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"policy":     pgseed.PolicyRecreate.String(),
		"timeout":    pgseed.DefaultTimeout.String(),
		"log_format": "console",
		"report":     "text",
		"base_dir":   ".",
	}
}

// Load merges all layers into Settings and validates the result.
func Load(opts LoadOptions) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path, err := findConfigFile(opts.File, opts.Dir)
	if err != nil {
		return nil, err
	}
	var fileCatalog string
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		fileCatalog = k.String("catalog")
	}

	// PGSEED_CONNECTION_HOST -> connection.host, PGSEED_S3_ENDPOINT -> s3.endpoint
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, mapped := flagKeys[f.Name]
			if !mapped {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			if key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	s.File = path
	s.Only = splitList(s.Only)

	// A catalog named in the settings file is relative to that file.
	if fileCatalog != "" && s.Catalog == fileCatalog && !filepath.IsAbs(s.Catalog) {
		s.Catalog = filepath.Join(filepath.Dir(path), s.Catalog)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range []string{"connection", "s3"} {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}
	return key
}

// splitList accepts comma separated values inside list items so that
// PGSEED_ONLY=a,b and --only a,b behave the same.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func findConfigFile(explicit, dir string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("%s: %w", explicit, ErrConfigNotFound)
			}
			return "", err
		}
		return explicit, nil
	}
	if dir == "" {
		dir = "."
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// Validate checks values that cannot be checked by type alone.
func (s *Settings) Validate() error {
	var errs []error

	if _, err := pgseed.ParsePolicy(s.Policy); err != nil {
		errs = append(errs, err)
	}
	if _, err := pgseed.ParseAuthMethod(s.Connection.AuthMethod); err != nil {
		errs = append(errs, err)
	}
	switch s.LogFormat {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q (want console or json): %w", s.LogFormat, pgseed.ErrInvalidConfig))
	}
	if s.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", pgseed.ErrInvalidConfig))
	}
	if s.Connection.ConnectRetries < 0 {
		errs = append(errs, fmt.Errorf("connect retries cannot be negative: %w", pgseed.ErrInvalidConfig))
	}
	if s.Connection.Port < 0 || s.Connection.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d: %w", s.Connection.Port, pgseed.ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ConnectionFlags converts the connection layer for db.ResolveConnection.
func (s *Settings) ConnectionFlags() *db.ConnectionFlags {
	c := s.Connection
	return &db.ConnectionFlags{
		URL:            c.URL,
		Host:           c.Host,
		Port:           c.Port,
		Username:       c.Username,
		Password:       c.Password,
		Database:       c.Database,
		SSLMode:        c.SSLMode,
		AuthMethod:     c.AuthMethod,
		AppName:        c.AppName,
		ConnectTimeout: c.ConnectTimeout,
		ConnectRetries: c.ConnectRetries,
		AWSRegion:      c.AWSRegion,
		GoogleInstance: c.GoogleInstance,
		AzureTenantID:  c.AzureTenantID,
		AzureClientID:  c.AzureClientID,
	}
}

// S3Config converts the s3 layer for source.NewMinioOpener.
func (s *Settings) S3Config() source.S3Config {
	return source.S3Config{
		Endpoint:  s.S3.Endpoint,
		AccessKey: s.S3.AccessKey,
		SecretKey: s.S3.SecretKey,
		Region:    s.S3.Region,
		UseSSL:    s.S3.UseSSL,
	}
}

// RunPolicy returns the parsed policy. Call after Validate.
func (s *Settings) RunPolicy() pgseed.Policy {
	p, _ := pgseed.ParsePolicy(s.Policy)
	return p
}

// Render writes flat dotted keys such as "connection.host" as a nested
// settings document. Empty string values are omitted.
func Render(values map[string]interface{}) ([]byte, error) {
	flat := make(map[string]interface{}, len(values))
	for k, v := range values {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		flat[k] = v
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(flat, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to build settings: %w", err)
	}
	out, err := k.Marshal(yaml.Parser())
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return out, nil
}

// WriteFile renders values to path. An existing file is kept unless
// overwrite is set.
func WriteFile(path string, values map[string]interface{}, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --overwrite to replace it): %w", path, pgseed.ErrInvalidConfig)
		}
	}

	data, err := Render(values)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
