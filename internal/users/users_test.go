package users_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"folio/internal/testsupport"
	"folio/internal/users"
)

func TestFindByEmail(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("finds existing user case-insensitively", func(t *testing.T) {
		testUser := testsupport.CreateTestUser(t, db, "test@example.com", "password123")

		foundUser, err := users.FindByEmail(db, " Test@Example.com ")

		require.NoError(t, err)
		assert.Equal(t, testUser.Email, foundUser.Email)
		assert.Equal(t, testUser.ID, foundUser.ID)
	})

	t.Run("returns error for non-existent user", func(t *testing.T) {
		foundUser, err := users.FindByEmail(db, "nonexistent@example.com")

		assert.Nil(t, foundUser)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestCreateAdminUser(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("creates new admin user successfully", func(t *testing.T) {
		err := users.CreateAdminUser(db, "NewAdmin@example.com", "securepassword123")
		require.NoError(t, err)

		foundUser, err := users.FindByEmail(db, "newadmin@example.com")
		require.NoError(t, err)
		assert.Equal(t, "newadmin@example.com", foundUser.Email)
		assert.NotEqual(t, "securepassword123", foundUser.EncryptedPassword)
	})

	t.Run("returns error when user already exists", func(t *testing.T) {
		require.NoError(t, users.CreateAdminUser(db, "existing@example.com", "password123"))

		err := users.CreateAdminUser(db, "existing@example.com", "password123")
		assert.ErrorIs(t, err, users.ErrUserExists)
	})

	t.Run("returns error for empty email", func(t *testing.T) {
		assert.Error(t, users.CreateAdminUser(db, "", "password123"))
	})

	t.Run("returns error for empty password", func(t *testing.T) {
		assert.Error(t, users.CreateAdminUser(db, "empty-pass@example.com", ""))
	})
}

func TestChangePassword(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("changes password and revokes tokens", func(t *testing.T) {
		email := "changepass@example.com"
		require.NoError(t, users.CreateAdminUser(db, email, "oldpassword123"))

		user, err := users.FindByEmail(db, email)
		require.NoError(t, err)
		secret, _, err := users.IssueToken(db, logger, user.ID, time.Hour, time.Now())
		require.NoError(t, err)

		require.NoError(t, users.ChangePassword(db, email, "newpassword456"))

		_, err = users.Authenticate(db, logger, email, "oldpassword123", time.Now())
		assert.ErrorIs(t, err, users.ErrInvalidCredentials)
		_, err = users.Authenticate(db, logger, email, "newpassword456", time.Now())
		assert.NoError(t, err)

		_, err = users.VerifyToken(db, secret, time.Now())
		assert.ErrorIs(t, err, users.ErrInvalidToken)
	})

	t.Run("returns error for non-existent user", func(t *testing.T) {
		err := users.ChangePassword(db, "nonexistent@example.com", "newpassword")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("returns error for empty password", func(t *testing.T) {
		require.NoError(t, users.CreateAdminUser(db, "testuser@example.com", "password123"))
		assert.Error(t, users.ChangePassword(db, "testuser@example.com", ""))
	})
}

func TestAuthenticate(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	require.NoError(t, users.CreateAdminUser(db, "admin@example.com", "s3cret-pass"))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid credentials", func(t *testing.T) {
		user, err := users.Authenticate(db, logger, "admin@example.com", "s3cret-pass", now)
		require.NoError(t, err)
		require.NotNil(t, user.LastLoginAt)
		assert.True(t, user.LastLoginAt.Equal(now))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := users.Authenticate(db, logger, "admin@example.com", "nope", now)
		assert.ErrorIs(t, err, users.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := users.Authenticate(db, logger, "ghost@example.com", "s3cret-pass", now)
		assert.ErrorIs(t, err, users.ErrInvalidCredentials)
	})
}

func TestTokens(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	require.NoError(t, users.CreateAdminUser(db, "tokens@example.com", "password123"))
	user, err := users.FindByEmail(db, "tokens@example.com")
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("issued token resolves to its user until expiry", func(t *testing.T) {
		secret, token, err := users.IssueToken(db, logger, user.ID, time.Hour, now)
		require.NoError(t, err)
		assert.Len(t, secret, 64)
		assert.NotEqual(t, secret, token.TokenHash)
		assert.True(t, token.ExpiresAt.Equal(now.Add(time.Hour)))

		found, err := users.VerifyToken(db, secret, now.Add(59*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		_, err = users.VerifyToken(db, secret, now.Add(time.Hour))
		assert.ErrorIs(t, err, users.ErrInvalidToken)
	})

	t.Run("revoked token is rejected", func(t *testing.T) {
		secret, _, err := users.IssueToken(db, logger, user.ID, time.Hour, now)
		require.NoError(t, err)

		require.NoError(t, users.RevokeToken(db, logger, secret))

		_, err = users.VerifyToken(db, secret, now)
		assert.ErrorIs(t, err, users.ErrInvalidToken)
	})

	t.Run("unknown and empty tokens are rejected", func(t *testing.T) {
		_, err := users.VerifyToken(db, "", now)
		assert.ErrorIs(t, err, users.ErrInvalidToken)
		_, err = users.VerifyToken(db, "deadbeef", now)
		assert.ErrorIs(t, err, users.ErrInvalidToken)
	})
}
