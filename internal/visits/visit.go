// Package visits stores page views and classifies visitors as new or returning at ingestion.
package visits

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"folio/internal/pkg/geoip"
	"folio/internal/pkg/referrers"
	"folio/internal/pkg/user_agent"
	"folio/internal/settings"
)

// ReturningWindow is how far back a matching address and session marks a visitor as returning.
const ReturningWindow = 24 * time.Hour

const maxPathLength = 2048

// ErrImmutable is returned when something tries to change or remove a stored visit.
var ErrImmutable = errors.New("visit records are append-only")

// VisitRecord is a single page view. Records are never updated or deleted.
type VisitRecord struct {
	ID           uint                     `gorm:"primaryKey" json:"id"`
	IPAddress    string                   `gorm:"index:idx_visits_ip_session;not null" json:"ipAddress"`
	SessionID    string                   `gorm:"index:idx_visits_ip_session;not null" json:"sessionId"`
	UserAgent    string                   `json:"userAgent"`
	Referrer     string                   `json:"referrer,omitempty"`
	ReferrerHost string                   `gorm:"index" json:"referrerHost"`
	Path         string                   `gorm:"index;not null" json:"path"`
	Device       user_agent.DeviceClass   `gorm:"not null" json:"device"`
	Browser      user_agent.BrowserFamily `gorm:"not null" json:"browser"`
	OS           user_agent.OSFamily      `gorm:"column:os;not null" json:"os"`
	Country      string                   `gorm:"index" json:"country"`
	IsNewVisitor bool                     `gorm:"not null" json:"isNewVisitor"`
	Duration     *int                     `json:"duration,omitempty"`
	Timestamp    time.Time                `gorm:"index;not null" json:"timestamp"`
}

func (VisitRecord) TableName() string {
	return "visits"
}

// BeforeUpdate rejects updates so the classifier decision is never revised.
func (v *VisitRecord) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutable
}

// BeforeDelete rejects model deletes.
func (v *VisitRecord) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutable
}

// RecordInput is an incoming page view as seen by the HTTP layer.
type RecordInput struct {
	IPAddress string
	UserAgent string
	Referrer  string
	Path      string
	SessionID string
	Duration  *int
	Timestamp time.Time
}

// RecordResult reports what ingestion decided. Recorded is false for bots and excluded addresses.
type RecordResult struct {
	SessionID    string
	IsNewVisitor bool
	Recorded     bool
	Visit        *VisitRecord
}

// IsReturningVisitor reports whether a visit with the same address and session
// exists in the 24 hours before now (exclusive of now-24h, inclusive of now).
func IsReturningVisitor(db *gorm.DB, ipAddress, sessionID string, now time.Time) (bool, error) {
	now = now.UTC()
	var count int64
	err := db.Model(&VisitRecord{}).
		Where("ip_address = ? AND session_id = ?", ipAddress, sessionID).
		Where("timestamp > ? AND timestamp <= ?", now.Add(-ReturningWindow), now).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("returning visitor lookup failed: %w", err)
	}
	return count > 0, nil
}

// RecordVisit classifies and stores a page view.
// A failed classifier lookup fails the whole ingestion.
func RecordVisit(db *gorm.DB, logger *slog.Logger, input RecordInput) (*RecordResult, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	timestamp = timestamp.UTC()

	result := &RecordResult{SessionID: sessionID}

	ua := user_agent.ParseUserAgent(input.UserAgent)
	if ua.Bot {
		logger.Debug("Skipping bot page view",
			slog.String("bot", ua.BotName),
			slog.String("path", input.Path))
		return result, nil
	}

	excluded, err := settings.IsIPExcluded(input.IPAddress)
	if err != nil {
		return nil, err
	}
	if excluded {
		logger.Debug("Skipping page view from excluded address", slog.String("ip_address", input.IPAddress))
		return result, nil
	}

	returning, err := IsReturningVisitor(db, input.IPAddress, sessionID, timestamp)
	if err != nil {
		return nil, err
	}

	visit := &VisitRecord{
		IPAddress:    input.IPAddress,
		SessionID:    sessionID,
		UserAgent:    input.UserAgent,
		Referrer:     strings.TrimSpace(input.Referrer),
		ReferrerHost: referrers.HostFromURL(input.Referrer),
		Path:         NormalizePath(input.Path),
		Device:       ua.Device,
		Browser:      ua.Browser,
		OS:           ua.OS,
		Country:      geoip.CountryCode(input.IPAddress),
		IsNewVisitor: !returning,
		Duration:     input.Duration,
		Timestamp:    timestamp,
	}

	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(visit).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store visit: %w", err)
	}

	result.IsNewVisitor = visit.IsNewVisitor
	result.Recorded = true
	result.Visit = visit
	return result, nil
}

// NormalizePath reduces a request path or URL to its path component with a leading slash.
func NormalizePath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "/"
	}
	if parsed, err := url.Parse(raw); err == nil {
		raw = parsed.EscapedPath()
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	if len(raw) > maxPathLength {
		raw = raw[:maxPathLength]
	}
	return raw
}
