package db

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// QuoteIdent folds name to lower case and quotes it, matching how PostgreSQL
// treats an unquoted identifier while keeping arbitrary input inert.
func QuoteIdent(name string) string {
	return pgx.Identifier{strings.ToLower(name)}.Sanitize()
}

// Qualified returns the quoted schema.table name.
func Qualified(schema, table string) string {
	return pgx.Identifier{strings.ToLower(schema), strings.ToLower(table)}.Sanitize()
}
