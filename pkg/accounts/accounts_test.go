package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"worktrack/models"
	"worktrack/pkg/auth"
	"worktrack/pkg/testdb"
)

func newService(t *testing.T) *Service {
	return NewService(testdb.Open(t), bcrypt.MinCost, time.Hour)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	u, err := s.Register(ctx, Registration{Username: " alice ", Email: "Alice@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, models.DefaultHourlyRate, u.HourlyRate)

	var schedule []models.WorkSchedule
	require.NoError(t, s.db.Where("user_id = ?", u.ID).Order("day_of_week").Find(&schedule).Error)
	require.Len(t, schedule, 7)
	assert.False(t, schedule[0].IsWorkDay)
	assert.True(t, schedule[1].IsWorkDay)
	assert.Equal(t, 8.0, schedule[5].DefaultHours)
	assert.Equal(t, 0.0, schedule[6].DefaultHours)

	t.Run("zero_rate_kept", func(t *testing.T) {
		zero := 0.0
		u, err := s.Register(ctx, Registration{Username: "volunteer", Email: "v@example.com", Password: "secret1", HourlyRate: &zero})
		require.NoError(t, err)
		var stored models.User
		require.NoError(t, s.db.First(&stored, u.ID).Error)
		assert.Equal(t, 0.0, stored.HourlyRate)
	})

	t.Run("duplicate_username", func(t *testing.T) {
		_, err := s.Register(ctx, Registration{Username: "alice", Email: "other@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("duplicate_email", func(t *testing.T) {
		_, err := s.Register(ctx, Registration{Username: "alice2", Email: "alice@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, ErrUserExists)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	_, err := s.Register(ctx, Registration{Username: "bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)

	u, err := s.Authenticate(ctx, "BOB@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)

	_, err = s.Authenticate(ctx, "bob@example.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = s.Authenticate(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	found, err := s.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
}

func TestRefreshLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	u, err := s.Register(ctx, Registration{Username: "carol", Email: "carol@example.com", Password: "secret1"})
	require.NoError(t, err)

	raw, err := s.IssueRefresh(ctx, u.ID)
	require.NoError(t, err)

	got, next, err := s.Rotate(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotEqual(t, raw, next)

	t.Run("replay_rejected", func(t *testing.T) {
		_, _, err := s.Rotate(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("unknown_rejected", func(t *testing.T) {
		_, _, err := s.Rotate(ctx, "deadbeef")
		assert.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("revoke", func(t *testing.T) {
		require.NoError(t, s.Revoke(ctx, next))
		_, _, err := s.Rotate(ctx, next)
		assert.ErrorIs(t, err, ErrInvalidRefresh)
		assert.ErrorIs(t, s.Revoke(ctx, "deadbeef"), ErrTokenNotFound)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewService(s.db, bcrypt.MinCost, time.Hour)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, err := past.IssueRefresh(ctx, u.ID)
		require.NoError(t, err)
		_, _, err = s.Rotate(ctx, old)
		assert.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("prune", func(t *testing.T) {
		live, err := s.IssueRefresh(ctx, u.ID)
		require.NoError(t, err)
		n, err := s.Prune(ctx, time.Now())
		require.NoError(t, err)
		// raw and next are revoked, old is expired
		assert.EqualValues(t, 3, n)
		_, _, err = s.Rotate(ctx, live)
		assert.NoError(t, err)
	})
}

func TestRegistrationValidate(t *testing.T) {
	rate := -1.0
	tests := []struct {
		name  string
		reg   Registration
		field string
	}{
		{"short username", Registration{Username: "ab", Email: "ab@example.com", Password: "secret1"}, "username"},
		{"bad email", Registration{Username: "abc", Email: "not-an-email", Password: "secret1"}, "email"},
		{"short password", Registration{Username: "abc", Email: "abc@example.com", Password: "12345"}, "password"},
		{"negative rate", Registration{Username: "abc", Email: "abc@example.com", Password: "secret1", HourlyRate: &rate}, "hourlyrate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reg.Validate()
			require.ErrorIs(t, err, ErrInvalidUser)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	assert.NoError(t, Registration{Username: "abc", Email: "abc@example.com", Password: "secret1"}.Validate())
}
