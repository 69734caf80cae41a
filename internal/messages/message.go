// Package messages stores contact-form submissions and drives their status workflow.
package messages

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Status is a contact message's workflow state.
type Status string

const (
	StatusNew      Status = "new"
	StatusRead     Status = "read"
	StatusReplied  Status = "replied"
	StatusArchived Status = "archived"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

var (
	// ErrNotFound is returned for unknown message ids.
	ErrNotFound = errors.New("message not found")
	// ErrInvalidStatus is returned for status values outside the workflow.
	ErrInvalidStatus = errors.New("invalid message status")
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusNew, StatusRead, StatusReplied, StatusArchived:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// ContactMessage is a contact-form submission.
type ContactMessage struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"not null" json:"name"`
	Email     string     `gorm:"index:idx_contact_email_created;not null" json:"email"`
	Phone     string     `json:"phone,omitempty"`
	Subject   string     `gorm:"not null" json:"subject"`
	Body      string     `gorm:"not null" json:"message"`
	IPAddress string     `gorm:"index:idx_contact_ip_created;not null" json:"ipAddress"`
	UserAgent string     `json:"userAgent"`
	Status    Status     `gorm:"index;not null;default:'new'" json:"status"`
	RepliedAt *time.Time `json:"repliedAt,omitempty"`
	RepliedBy *uint      `json:"repliedBy,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `gorm:"index:idx_contact_email_created;index:idx_contact_ip_created;not null" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"not null" json:"updatedAt"`
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateInput is a validated contact-form submission.
type CreateInput struct {
	Name      string
	Email     string
	Phone     string
	Subject   string
	Body      string
	IPAddress string
	UserAgent string
}

// GuardFunc runs inside the create transaction before the insert. A non-nil
// error aborts creation and is returned unchanged.
type GuardFunc func(tx *gorm.DB, email, ipAddress string, now time.Time) error

// Create stores a new message in status new. When guard is set it is checked
// in the same write transaction, so a rejected submission leaves no record.
func Create(db *gorm.DB, logger *slog.Logger, input CreateInput, now time.Time, guard GuardFunc) (*ContactMessage, error) {
	now = now.UTC()
	msg := &ContactMessage{
		Name:      strings.TrimSpace(input.Name),
		Email:     NormalizeEmail(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		Subject:   strings.TrimSpace(input.Subject),
		Body:      strings.TrimSpace(input.Body),
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
		Status:    StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var guardErr error
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		if guard != nil {
			if guardErr = guard(tx, msg.Email, msg.IPAddress, now); guardErr != nil {
				return guardErr
			}
		}
		return tx.Create(msg).Error
	})
	if guardErr != nil {
		return nil, guardErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	logger.Info("Contact message received",
		slog.Uint64("id", uint64(msg.ID)),
		slog.String("status", string(msg.Status)))
	return msg, nil
}

// ListOptions filters and paginates List. Page is 1-based.
type ListOptions struct {
	Status *Status
	Page   int
	Limit  int
}

// ListResult is one page of messages, newest first.
type ListResult struct {
	Messages []ContactMessage `json:"messages"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

// List returns messages newest first. Limit defaults to 20 and is capped at 200.
func List(db *gorm.DB, opts ListOptions) (*ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	scoped := func() *gorm.DB {
		query := db.Model(&ContactMessage{})
		if opts.Status != nil {
			query = query.Where("status = ?", *opts.Status)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	result := &ListResult{Messages: []ContactMessage{}, Total: total, Page: page, Limit: limit}
	err := scoped().Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&result.Messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return result, nil
}

func find(db *gorm.DB, id uint) (*ContactMessage, error) {
	var msg ContactMessage
	err := db.First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load message %d: %w", id, err)
	}
	return &msg, nil
}

// FetchAndMarkRead loads a message for the admin detail view. Opening a message
// in status new is a write: it moves the message to read.
func FetchAndMarkRead(db *gorm.DB, logger *slog.Logger, id uint, now time.Time) (*ContactMessage, error) {
	var msg *ContactMessage
	var lookupErr error
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		msg, lookupErr = find(tx, id)
		if lookupErr != nil {
			return lookupErr
		}
		if msg.Status != StatusNew {
			return nil
		}
		msg.Status = StatusRead
		msg.UpdatedAt = now.UTC()
		return tx.Model(&ContactMessage{}).Where("id = ? AND status = ?", id, StatusNew).
			Updates(map[string]any{"status": StatusRead, "updated_at": msg.UpdatedAt}).Error
	})
	if lookupErr != nil {
		return nil, lookupErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark message %d read: %w", id, err)
	}
	return msg, nil
}

// StatusUpdate is an admin status change. Notes, when non-nil, replace the stored notes.
type StatusUpdate struct {
	Status  string
	Notes   *string
	AdminID uint
}

// UpdateStatus applies a workflow transition. The status is validated before any
// read or write. The first transition to replied stamps RepliedAt and RepliedBy;
// later ones leave them untouched.
func UpdateStatus(db *gorm.DB, logger *slog.Logger, id uint, update StatusUpdate, now time.Time) (*ContactMessage, error) {
	status, err := ParseStatus(update.Status)
	if err != nil {
		return nil, err
	}
	now = now.UTC()

	var msg *ContactMessage
	var lookupErr error
	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		msg, lookupErr = find(tx, id)
		if lookupErr != nil {
			return lookupErr
		}

		changes := map[string]any{"status": status, "updated_at": now}
		msg.Status = status
		msg.UpdatedAt = now
		if update.Notes != nil {
			changes["notes"] = *update.Notes
			msg.Notes = *update.Notes
		}
		if status == StatusReplied && msg.RepliedAt == nil {
			adminID := update.AdminID
			changes["replied_at"] = now
			changes["replied_by"] = adminID
			msg.RepliedAt = &now
			msg.RepliedBy = &adminID
		}
		return tx.Model(&ContactMessage{}).Where("id = ?", id).Updates(changes).Error
	})
	if lookupErr != nil {
		return nil, lookupErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update message %d: %w", id, err)
	}

	logger.Info("Contact message status updated",
		slog.Uint64("id", uint64(id)),
		slog.String("status", string(status)),
		slog.Uint64("admin_id", uint64(update.AdminID)))
	return msg, nil
}

// Delete removes a message permanently.
func Delete(db *gorm.DB, logger *slog.Logger, id uint) error {
	var rows int64
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Delete(&ContactMessage{}, id)
		rows = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete message %d: %w", id, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStatus returns how many messages are in each status.
func CountByStatus(db *gorm.DB) (map[Status]int64, error) {
	var rows []struct {
		Status Status
		Count  int64
	}
	err := db.Model(&ContactMessage{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count messages by status: %w", err)
	}
	counts := map[Status]int64{StatusNew: 0, StatusRead: 0, StatusReplied: 0, StatusArchived: 0}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
