package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"campus-chat/internal/models"
	apperrors "campus-chat/pkg/errors"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("test-secret")
	want := models.Identity{ID: "lect-1", DisplayName: "Dr. Grace", Role: models.RoleLecturer}

	token, err := v.Mint(want, time.Minute)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewVerifier("secret-a").Mint(models.Identity{ID: "u1", Role: models.RoleStudent}, time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier("secret-b").Verify(token)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v := NewVerifier("test-secret")
	token, err := v.Mint(models.Identity{ID: "u1", Role: models.RoleStudent}, -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	v := NewVerifier("test-secret")
	token, err := v.Mint(models.Identity{ID: "u1", Role: "registrar"}, time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	v := NewVerifier("test-secret")
	token, err := v.Mint(models.Identity{Role: models.RoleStudent}, time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewVerifier("test-secret").Verify("not-a-token")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}
