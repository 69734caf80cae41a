// Package throttle rejects contact submissions that repeat too quickly from the
// same email address or network address.
package throttle

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"folio/internal/messages"
)

const (
	// EmailWindow is the cooldown per email address.
	EmailWindow = 60 * time.Minute
	// AddressWindow is the cooldown per network address.
	AddressWindow = 15 * time.Minute
)

var (
	// ErrRateLimited is matched by every LimitError.
	ErrRateLimited = errors.New("too many submissions, please try again later")
	// ErrCheckFailed wraps storage failures. Callers must reject the submission.
	ErrCheckFailed = errors.New("submission throttle check failed")
)

// Reason names the identity that tripped the throttle.
type Reason string

const (
	ReasonEmail   Reason = "email"
	ReasonAddress Reason = "ip_address"
)

// LimitError is returned when a recent submission blocks this one.
type LimitError struct {
	Reason     Reason
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s (by %s, retry in %s)", ErrRateLimited.Error(), e.Reason, e.RetryAfter.Round(time.Second))
}

func (e *LimitError) Unwrap() error {
	return ErrRateLimited
}

// Check is read-only. It reports a *LimitError when a message with the same email
// was created within EmailWindow, or one from the same address within AddressWindow.
// Lookup failures return ErrCheckFailed so the submission fails closed.
// It matches messages.GuardFunc.
func Check(db *gorm.DB, email, ipAddress string, now time.Time) error {
	now = now.UTC()

	if email != "" {
		retry, err := lastWithin(db, "email = ?", messages.NormalizeEmail(email), EmailWindow, now)
		if err != nil {
			return err
		}
		if retry > 0 {
			return &LimitError{Reason: ReasonEmail, RetryAfter: retry}
		}
	}

	if ipAddress != "" {
		retry, err := lastWithin(db, "ip_address = ?", ipAddress, AddressWindow, now)
		if err != nil {
			return err
		}
		if retry > 0 {
			return &LimitError{Reason: ReasonAddress, RetryAfter: retry}
		}
	}

	return nil
}

// lastWithin returns how long until the newest matching message leaves window, or 0.
func lastWithin(db *gorm.DB, cond string, value string, window time.Duration, now time.Time) (time.Duration, error) {
	var createdAt []time.Time
	err := db.Model(&messages.ContactMessage{}).
		Where(cond, value).
		Where("created_at > ? AND created_at <= ?", now.Add(-window), now).
		Order("created_at DESC").
		Limit(1).
		Pluck("created_at", &createdAt).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCheckFailed, err)
	}
	if len(createdAt) == 0 {
		return 0, nil
	}

	retry := createdAt[0].Add(window).Sub(now)
	if retry <= 0 {
		retry = time.Second
	}
	return retry, nil
}
