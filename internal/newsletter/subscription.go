// Package newsletter handles double opt-in email subscriptions.
package newsletter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// ErrTokenNotFound is returned when a confirmation token matches no pending subscription.
var ErrTokenNotFound = errors.New("confirmation token not found")

// Subscription is one address on the list. Token is cleared once confirmed.
type Subscription struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Token       *string    `gorm:"uniqueIndex" json:"-"`
	Confirmed   bool       `gorm:"not null;default:false" json:"confirmed"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (Subscription) TableName() string {
	return "newsletter_subscriptions"
}

// SubscribeResult is returned by Subscribe. Token is empty when the address was already confirmed.
type SubscribeResult struct {
	Subscription     *Subscription
	Token            string
	AlreadyConfirmed bool
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Subscribe registers an address. Pending addresses get a fresh token instead of a
// duplicate row; confirmed addresses are left unchanged.
func Subscribe(db *gorm.DB, logger *slog.Logger, email string, now time.Time) (*SubscribeResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}
	now = now.UTC()

	result := &SubscribeResult{}
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		var sub Subscription
		err := tx.Where("email = ?", email).First(&sub).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			token := uuid.NewString()
			sub = Subscription{Email: email, Token: &token, CreatedAt: now, UpdatedAt: now}
			if err := tx.Create(&sub).Error; err != nil {
				return err
			}
			result.Token = token
		case err != nil:
			return err
		case sub.Confirmed:
			result.AlreadyConfirmed = true
		default:
			token := uuid.NewString()
			if err := tx.Model(&sub).Updates(map[string]any{"token": token, "updated_at": now}).Error; err != nil {
				return err
			}
			sub.Token = &token
			sub.UpdatedAt = now
			result.Token = token
		}
		result.Subscription = &sub
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe %s: %w", email, err)
	}

	logger.Info("Newsletter subscription requested",
		slog.Bool("already_confirmed", result.AlreadyConfirmed))
	return result, nil
}

// Confirm marks the pending subscription owning token as confirmed and clears the token.
func Confirm(db *gorm.DB, logger *slog.Logger, token string, now time.Time) (*Subscription, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenNotFound
	}
	now = now.UTC()

	var sub Subscription
	var lookupErr error
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		lookupErr = tx.Where("token = ?", token).First(&sub).Error
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			lookupErr = ErrTokenNotFound
			return lookupErr
		}
		if lookupErr != nil {
			return lookupErr
		}
		sub.Confirmed = true
		sub.ConfirmedAt = &now
		sub.Token = nil
		sub.UpdatedAt = now
		return tx.Model(&Subscription{}).Where("id = ?", sub.ID).Updates(map[string]any{
			"confirmed":    true,
			"confirmed_at": now,
			"token":        nil,
			"updated_at":   now,
		}).Error
	})
	if errors.Is(lookupErr, ErrTokenNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to confirm subscription: %w", err)
	}
	return &sub, nil
}

// Unsubscribe removes an address. Unknown addresses are ignored.
func Unsubscribe(db *gorm.DB, logger *slog.Logger, email string) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Where("email = ?", normalizeEmail(email)).Delete(&Subscription{}).Error
	})
}

// List returns subscriptions newest first, optionally only confirmed ones.
func List(db *gorm.DB, confirmedOnly bool) ([]Subscription, error) {
	subs := []Subscription{}
	query := db.Order("created_at DESC").Order("id DESC")
	if confirmedOnly {
		query = query.Where("confirmed = ?", true)
	}
	if err := query.Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
