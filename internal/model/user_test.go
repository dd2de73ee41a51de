package model

import (
	"testing"

	"github.com/Veraticus/purse/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser("  Alice ", "secret1", bcrypt.MinCost)
	require.NoError(t, err)

	assert.Equal(t, "alice", u.Login())
	assert.Equal(t, "alice", u.Wallet().UserID())
	assert.NotContains(t, u.PasswordHash(), "secret1")
	require.NoError(t, u.VerifyPassword("secret1"))
	require.ErrorIs(t, u.VerifyPassword("secret2"), common.ErrInvalidCredential)
}

func TestNewUser_SaltsEachHash(t *testing.T) {
	a, err := NewUser("a_user", "same-password", bcrypt.MinCost)
	require.NoError(t, err)
	b, err := NewUser("b_user", "same-password", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, a.PasswordHash(), b.PasswordHash())
}

func TestNewUser_Validation(t *testing.T) {
	_, err := NewUser("  ", "secret", bcrypt.MinCost)
	require.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = NewUser("bob", "", bcrypt.MinCost)
	require.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestRestoreUser(t *testing.T) {
	original, err := NewUser("carol", "pa55", bcrypt.MinCost)
	require.NoError(t, err)

	restored, err := RestoreUser("CAROL", original.PasswordHash(), nil)
	require.NoError(t, err)
	assert.Equal(t, "carol", restored.Login())
	require.NoError(t, restored.VerifyPassword("pa55"))
	assert.NotNil(t, restored.Wallet())

	_, err = RestoreUser("carol", "plain-text", nil)
	require.ErrorIs(t, err, common.ErrInvalidState)
}
