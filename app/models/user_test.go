package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserHashesPassword(t *testing.T) {
	u, err := CreateUser("Alice Rahman", "Alice@Example.COM", "1990123456789", "01711111111", "secret1")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "secret1", u.Password)
	assert.True(t, u.CheckPassword("secret1"))
	assert.False(t, u.CheckPassword("secret2"))
}

func TestCreateUserRejectsShortPassword(t *testing.T) {
	_, err := CreateUser("Alice Rahman", "alice@example.com", "1990123456789", "01711111111", "12345")
	assert.Error(t, err)
}

func TestCreateUserRejectsMissingFields(t *testing.T) {
	_, err := CreateUser("", "alice@example.com", "1990123456789", "01711111111", "secret1")
	assert.Error(t, err)

	_, err = CreateUser("Alice Rahman", "not-an-email", "1990123456789", "01711111111", "secret1")
	assert.Error(t, err)

	_, err = CreateUser("Alice Rahman", "alice@example.com", "", "01711111111", "secret1")
	assert.Error(t, err)
}

func TestResetCodeLifecycle(t *testing.T) {
	u := &User{}
	code, err := u.GenerateResetCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)
	require.NotNil(t, u.ResetCodeExpiresAt)

	assert.True(t, u.IsResetCodeValid(code))
	assert.False(t, u.IsResetCodeValid("000000x"))

	u.ClearResetCode()
	assert.False(t, u.IsResetCodeValid(code))
	assert.Nil(t, u.ResetCodeExpiresAt)
}

func TestResetCodeExpiry(t *testing.T) {
	u := &User{}
	code, err := u.GenerateResetCode()
	require.NoError(t, err)

	expired := time.Now().Add(-time.Minute)
	u.ResetCodeExpiresAt = &expired
	assert.False(t, u.IsResetCodeValid(code))
}

func TestSetPassword(t *testing.T) {
	u := &User{}
	require.NoError(t, u.SetPassword("newsecret"))
	assert.True(t, u.CheckPassword("newsecret"))
}
