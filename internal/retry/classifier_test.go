package retry

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPostgreSQLErrorClassifier_IsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"cannot connect now", &pgconn.PgError{Code: "57P03"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"bad password", &pgconn.PgError{Code: "28P01"}, false},
		{"database missing", &pgconn.PgError{Code: "3D000"}, false},
		{"syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"wrapped pg error", fmt.Errorf("connect: %w", &pgconn.PgError{Code: "08001"}), true},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"message pattern", errors.New("read tcp: i/o timeout"), true},
		{"plain error", errors.New("permission denied"), false},
	}

	c := NewPostgreSQLErrorClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsTransient(tt.err))
		})
	}
}
