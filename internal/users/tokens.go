package users

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// ErrInvalidToken is returned for unknown, revoked or expired bearer tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Token is an admin API bearer token. Only the SHA-256 digest of the secret is stored.
type Token struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	TokenHash string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Token) TableName() string {
	return "admin_tokens"
}

func hashToken(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IssueToken creates a token for userID valid for ttl and returns the plaintext secret.
// The secret cannot be recovered later.
func IssueToken(dbConn *gorm.DB, logger *slog.Logger, userID uint, ttl time.Duration, now time.Time) (string, *Token, error) {
	secret, err := newSecret()
	if err != nil {
		return "", nil, err
	}

	token := &Token{
		UserID:    userID,
		TokenHash: hashToken(secret),
		ExpiresAt: now.UTC().Add(ttl),
	}
	err = sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		if err := tx.Where("expires_at <= ?", now.UTC()).Delete(&Token{}).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to store token: %w", err)
	}

	return secret, token, nil
}

// VerifyToken resolves a plaintext secret to its user.
func VerifyToken(dbConn *gorm.DB, secret string, now time.Time) (*User, error) {
	if secret == "" {
		return nil, ErrInvalidToken
	}

	var token Token
	err := dbConn.Where("token_hash = ? AND expires_at > ?", hashToken(secret), now.UTC()).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	user, err := FindByID(dbConn, token.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	}
	return user, err
}

// RevokeToken deletes the token matching secret. Unknown secrets are ignored.
func RevokeToken(dbConn *gorm.DB, logger *slog.Logger, secret string) error {
	return sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		return tx.Where("token_hash = ?", hashToken(secret)).Delete(&Token{}).Error
	})
}

// PurgeExpiredTokens deletes every token that expired at or before now.
func PurgeExpiredTokens(dbConn *gorm.DB, logger *slog.Logger, now time.Time) (int64, error) {
	var deleted int64
	err := sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		result := tx.Where("expires_at <= ?", now.UTC()).Delete(&Token{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired tokens: %w", err)
	}
	return deleted, nil
}
