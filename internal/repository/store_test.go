package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"no rows", pgx.ErrNoRows, models.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), models.ErrNotFound},
		{
			"active vehicle index",
			&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "uniq_incidents_active_vehicle"},
			models.ErrConflict,
		},
		{"missing vehicle", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, models.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err, "update incident %d", 1)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "update incident 1")
		})
	}

	t.Run("other errors keep their cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := mapError(cause, "list incidents")
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, models.ErrNotFound)
		assert.Equal(t, "failed to list incidents: connection reset", err.Error())
	})
}

func TestIncidentKey(t *testing.T) {
	id := uuid.MustParse("9b2f6a1e-3c4d-4e5f-8a9b-0c1d2e3f4a5b")
	assert.Equal(t, "incident:9b2f6a1e-3c4d-4e5f-8a9b-0c1d2e3f4a5b", incidentKey(id))
}
