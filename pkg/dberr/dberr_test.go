package dberr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm_translated", fmt.Errorf("create: %w", gorm.ErrDuplicatedKey), true},
		{"pg_unique", &pgconn.PgError{Code: "23505"}, true},
		{"pg_other", &pgconn.PgError{Code: "23503", Message: "foreign key"}, false},
		{"sqlite_message", errors.New("UNIQUE constraint failed: users.email"), true},
		{"pg_message", errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_email"`), true},
		{"other", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("load: %w", gorm.ErrRecordNotFound)))
	assert.False(t, IsNotFound(errors.New("record not found")))
}
