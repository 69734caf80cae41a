// Package content stores keyed content blocks for the public site.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned for unknown keys.
	ErrNotFound = errors.New("content block not found")
	// ErrInvalidKey is returned for keys outside [a-z0-9._-], up to 100 characters.
	ErrInvalidKey = errors.New("invalid content key")
)

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,99}$`)

// Block is a keyed piece of site content, e.g. "hero.title" or "about.body".
type Block struct {
	ID        uint           `gorm:"primaryKey"`
	Key       string         `gorm:"uniqueIndex;not null"`
	Kind      Kind           `gorm:"not null"`
	Text      string         `gorm:"not null;default:''"`
	Data      datatypes.JSON `gorm:"type:json;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Block) TableName() string {
	return "content_blocks"
}

// Decode turns the stored columns back into a Value.
func (b *Block) Decode() (Value, error) {
	switch b.Kind {
	case KindText:
		return Text(b.Text), nil
	case KindHTML:
		return HTML(b.Text), nil
	case KindJSON:
		return JSON(b.Data), nil
	default:
		return nil, fmt.Errorf("%w: %q in block %s", ErrUnknownKind, b.Kind, b.Key)
	}
}

// MarshalJSON serves a block as {key, kind, value, updatedAt}.
func (b Block) MarshalJSON() ([]byte, error) {
	v, err := b.Decode()
	if err != nil {
		return nil, err
	}
	raw, err := EncodeValue(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Key       string          `json:"key"`
		Kind      Kind            `json:"kind"`
		Value     json.RawMessage `json:"value"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}{b.Key, b.Kind, raw, b.UpdatedAt})
}

// NormalizeKey lowercases and validates a block key.
func NormalizeKey(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return key, nil
}

// Get loads a block by key.
func Get(db *gorm.DB, key string) (*Block, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return nil, ErrNotFound
	}

	var block Block
	err = db.Where("key = ?", key).First(&block).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load content %s: %w", key, err)
	}
	return &block, nil
}

// List returns every block ordered by key.
func List(db *gorm.DB) ([]Block, error) {
	blocks := []Block{}
	if err := db.Order("key ASC").Find(&blocks).Error; err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	return blocks, nil
}

// Put creates or replaces the block stored under key.
func Put(db *gorm.DB, logger *slog.Logger, key string, value Value, now time.Time) (*Block, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return nil, err
	}
	kind, text, data, err := columns(value)
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	block := &Block{Key: key, Kind: kind, Text: text, Data: data, CreatedAt: now, UpdatedAt: now}
	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "text", "data", "updated_at"}),
		}).Create(block).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save content %s: %w", key, err)
	}

	return Get(db, key)
}

// Delete removes the block stored under key.
func Delete(db *gorm.DB, logger *slog.Logger, key string) error {
	key, err := NormalizeKey(key)
	if err != nil {
		return ErrNotFound
	}

	var rows int64
	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Where("key = ?", key).Delete(&Block{})
		rows = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete content %s: %w", key, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
