package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/finance-assistant/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "undefined table",
			err:  &pgconn.PgError{Code: "42P01", Message: `relation "transactions" does not exist`},
			want: store.ErrTableMissing,
		},
		{
			name: "row level security",
			err:  fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "42501", Message: "new row violates row-level security policy"}),
			want: store.ErrPermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err), tt.want)
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	other := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	got := mapError(other)
	assert.Same(t, other, got)

	plain := errors.New("connection refused")
	assert.Equal(t, plain, mapError(plain))
}
