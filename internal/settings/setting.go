package settings

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/cache"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// KeyExcludedIPs holds a comma separated list of addresses whose page views are not recorded.
const KeyExcludedIPs = "excluded_ips"

// ErrInvalidIP is returned when an excluded address does not parse as an IP.
var ErrInvalidIP = errors.New("invalid ip address")

// Setting represents a configuration item in the database
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"uniqueIndex;not null"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:milli"`
}

var (
	excludedIPsCache *cache.Cache[string, []string]
	cacheMu          sync.RWMutex
)

// SetupDefaultSettings seeds default settings and (re)binds the excluded IPs cache to dbConn.
func SetupDefaultSettings(dbConn *gorm.DB, logger *slog.Logger) error {
	defaults := []Setting{
		{Key: KeyExcludedIPs, Value: ""},
	}
	now := time.Now().UTC()
	err := sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		for _, setting := range defaults {
			err := tx.Exec(`
                INSERT INTO settings (key, value, created_at, updated_at)
                VALUES (?, ?, ?, ?)
                ON CONFLICT(key) DO NOTHING
            `, setting.Key, setting.Value, now, now).Error
			if err != nil {
				logger.Error("Failed to upsert setting", slog.String("key", setting.Key), slog.Any("error", err))
				return fmt.Errorf("failed to upsert setting %s: %w", setting.Key, err)
			}
		}
		return nil
	})

	loadCache(dbConn, logger)

	return err
}

// IsIPExcluded reports whether page views from ip should be skipped.
// It returns false until SetupDefaultSettings has run.
func IsIPExcluded(ip string) (bool, error) {
	cacheMu.RLock()
	c := excludedIPsCache
	cacheMu.RUnlock()
	if c == nil {
		return false, nil
	}

	excludedIPs, err := c.Get(KeyExcludedIPs)
	if err != nil {
		return false, fmt.Errorf("failed to check excluded IPs: %w", err)
	}

	ip = canonicalIP(ip)
	for _, excludedIP := range excludedIPs {
		if excludedIP == ip {
			return true, nil
		}
	}
	return false, nil
}

// GetSetting retrieves a setting value from the database
func GetSetting(dbConn *gorm.DB, key string) (string, error) {
	var setting Setting
	if err := dbConn.Where("key = ?", key).First(&setting).Error; err != nil {
		return "", err
	}
	return setting.Value, nil
}

// UpdateSetting writes a setting, creating it when missing, and refreshes the cache.
func UpdateSetting(dbConn *gorm.DB, logger *slog.Logger, key string, value string) error {
	err := sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		result := tx.Model(&Setting{}).Where("key = ?", key).Update("value", value)
		if result.Error != nil {
			return fmt.Errorf("failed to update setting: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			return nil
		}
		if err := tx.Create(&Setting{Key: key, Value: value}).Error; err != nil {
			return fmt.Errorf("failed to create setting: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cacheMu.RLock()
	c := excludedIPsCache
	cacheMu.RUnlock()
	if c != nil {
		c.Clear()
	}
	loadCache(dbConn, logger)

	return nil
}

// ExcludedIPs returns the currently configured excluded addresses.
func ExcludedIPs(dbConn *gorm.DB) ([]string, error) {
	value, err := GetSetting(dbConn, KeyExcludedIPs)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return splitIPs(value), nil
}

// SetExcludedIPs validates and stores the excluded address list, dropping duplicates.
func SetExcludedIPs(dbConn *gorm.DB, logger *slog.Logger, ips []string) ([]string, error) {
	seen := make(map[string]bool, len(ips))
	cleaned := make([]string, 0, len(ips))
	for _, raw := range ips {
		ip := strings.TrimSpace(raw)
		if ip == "" {
			continue
		}
		addr, err := netip.ParseAddr(ip)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIP, ip)
		}
		ip = addr.WithZone("").Unmap().String()
		if !seen[ip] {
			seen[ip] = true
			cleaned = append(cleaned, ip)
		}
	}

	if err := UpdateSetting(dbConn, logger, KeyExcludedIPs, strings.Join(cleaned, ",")); err != nil {
		return nil, err
	}
	return cleaned, nil
}

func splitIPs(value string) []string {
	out := []string{}
	for _, ip := range strings.Split(value, ",") {
		if ip = canonicalIP(ip); ip != "" {
			out = append(out, ip)
		}
	}
	return out
}

// canonicalIP returns the normalized text form of ip, so 2001:DB8::1 and
// 2001:db8::1 compare equal. Unparseable values are returned trimmed.
func canonicalIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if addr, err := netip.ParseAddr(ip); err == nil {
		return addr.WithZone("").Unmap().String()
	}
	return ip
}

func loadCache(dbConn *gorm.DB, logger *slog.Logger) {
	fetchFunc := func(key string) ([]string, error) {
		var value string
		err := dbConn.WithContext(context.Background()).Raw("SELECT value FROM settings WHERE key = ? LIMIT 1", key).Scan(&value).Error
		if err != nil {
			return nil, err
		}
		return splitIPs(value), nil
	}

	cacheMu.Lock()
	excludedIPsCache = cache.NewCache[string, []string](logger, 5*time.Minute, fetchFunc)
	cacheMu.Unlock()
}
