package cli

import (
	"github.com/spf13/pflag"
)

// addConnectionFlags registers the connection flags. There is no --password
// flag: use $PGPASSWORD, pgseed.yaml or a connection URL.
func addConnectionFlags(fs *pflag.FlagSet) {
	fs.String("url", "",
		"PostgreSQL connection string (URI or key=value;... form).\n"+
			"Its database is the maintenance database used for CREATE/DROP DATABASE.\n"+
			"Alternative: $DATABASE_URL")
	fs.String("host", "", "PostgreSQL server host (default: $PGHOST or postgres)")
	fs.IntP("port", "p", 0, "PostgreSQL server port (default: $PGPORT or 5432)")
	fs.StringP("username", "U", "", "PostgreSQL user (default: $PGUSER or postgres)")
	fs.StringP("database", "d", "", "Maintenance database (default: $PGDATABASE or postgres)")
	fs.String("sslmode", "", "SSL mode: disable|allow|prefer|require|verify-ca|verify-full")
	fs.String("auth-method", "", "Authentication: standard|aws|google|azure (default standard)")
	fs.String("app-name", "", "application_name reported to the server (default pgseed)")
	fs.Duration("connect-timeout", 0, "Timeout of a single connection attempt")
	fs.Int("connect-retries", 0, "Retries on transient connection errors (default 0: fail fast)")
	fs.String("aws-region", "", "AWS region for IAM authentication (default: $AWS_REGION)")
	fs.String("google-instance", "", "Cloud SQL instance connection name project:region:instance")
	fs.String("azure-tenant-id", "", "Azure tenant for Entra ID authentication (default: $AZURE_TENANT_ID)")
	fs.String("azure-client-id", "", "Azure client for Entra ID authentication (default: $AZURE_CLIENT_ID)")
}

func addS3Flags(fs *pflag.FlagSet) {
	fs.String("s3-endpoint", "", "S3/MinIO endpoint for s3:// sources, e.g. https://minio:9000")
	fs.String("s3-access-key", "", "S3 access key (default: $AWS_ACCESS_KEY_ID)")
	fs.String("s3-secret-key", "", "S3 secret key (default: $AWS_SECRET_ACCESS_KEY)")
	fs.String("s3-region", "", "S3 region")
	fs.Bool("s3-use-ssl", false, "Use TLS for the S3 endpoint (implied by an https:// endpoint)")
}

func addCatalogFlags(fs *pflag.FlagSet) {
	fs.String("catalog", "", "Catalog YAML file (default: built-in catalog)")
	fs.String("base-dir", "", "Directory relative sources of the built-in catalog resolve against (default .)")
	fs.StringSlice("only", nil, "Restrict the run to these databases (repeatable or comma separated)")
	fs.String("report", "", "Report format: text|json|markdown (default text)")
}

func addRunFlags(fs *pflag.FlagSet) {
	fs.String("policy", "", "recreate: drop and create databases and schemas (default)\n"+
		"preserve: only create what is missing, never drop")
	fs.Bool("skip-load", false, "Create structure only, do not load CSV data")
	fs.Bool("strict", false, "Exit with code 13 when any step failed")
	fs.Bool("force", false, "Skip the interactive confirmation (a short countdown is shown instead)")
	fs.Duration("timeout", 0, "Upper bound for the whole run, e.g. 30s, 5m, 1h (default 30m)")
}
