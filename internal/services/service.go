// Package services manages the offerings listed on the public site.
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/gosimple/slug"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned for unknown service ids or slugs.
	ErrNotFound = errors.New("service not found")
	// ErrSlugTaken is returned when another service already uses the slug.
	ErrSlugTaken = errors.New("service slug already in use")
	// ErrInvalid is returned when a service has no usable title or slug.
	ErrInvalid = errors.New("service requires a title")
)

// Service is one offering, e.g. "Web development".
type Service struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Description string    `json:"description"`
	Icon        string    `json:"icon,omitempty"`
	SortOrder   int       `gorm:"not null;default:0" json:"sortOrder"`
	Published   bool      `gorm:"not null;default:false" json:"published"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Input carries the editable fields. An empty Slug is derived from Title.
type Input struct {
	Title       string
	Slug        string
	Description string
	Icon        string
	SortOrder   int
	Published   bool
}

func (in Input) normalized() (Input, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, ErrInvalid
	}
	source := strings.TrimSpace(in.Slug)
	if source == "" {
		source = in.Title
	}
	in.Slug = slug.Make(source)
	if in.Slug == "" {
		return in, ErrInvalid
	}
	in.Description = strings.TrimSpace(in.Description)
	in.Icon = strings.TrimSpace(in.Icon)
	return in, nil
}

func slugTaken(tx *gorm.DB, s string, exceptID uint) (bool, error) {
	var count int64
	err := tx.Model(&Service{}).Where("slug = ? AND id <> ?", s, exceptID).Count(&count).Error
	return count > 0, err
}

// List returns services ordered by sort order then title.
func List(db *gorm.DB, publishedOnly bool) ([]Service, error) {
	out := []Service{}
	query := db.Order("sort_order ASC").Order("title ASC")
	if publishedOnly {
		query = query.Where("published = ?", true)
	}
	if err := query.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return out, nil
}

// Get loads a service by id.
func Get(db *gorm.DB, id uint) (*Service, error) {
	var svc Service
	err := db.First(&svc, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load service %d: %w", id, err)
	}
	return &svc, nil
}

// GetBySlug loads a service by slug.
func GetBySlug(db *gorm.DB, s string) (*Service, error) {
	var svc Service
	err := db.Where("slug = ?", slug.Make(s)).First(&svc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load service %q: %w", s, err)
	}
	return &svc, nil
}

// Create stores a new service.
func Create(db *gorm.DB, logger *slog.Logger, input Input) (*Service, error) {
	in, err := input.normalized()
	if err != nil {
		return nil, err
	}

	svc := &Service{
		Title:       in.Title,
		Slug:        in.Slug,
		Description: in.Description,
		Icon:        in.Icon,
		SortOrder:   in.SortOrder,
		Published:   in.Published,
	}

	var conflict bool
	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		taken, err := slugTaken(tx, svc.Slug, 0)
		if err != nil {
			return err
		}
		if taken {
			conflict = true
			return ErrSlugTaken
		}
		return tx.Create(svc).Error
	})
	if conflict {
		return nil, fmt.Errorf("%w: %s", ErrSlugTaken, svc.Slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return svc, nil
}

// Update replaces every editable field of service id.
func Update(db *gorm.DB, logger *slog.Logger, id uint, input Input) (*Service, error) {
	in, err := input.normalized()
	if err != nil {
		return nil, err
	}

	var conflict, missing bool
	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		if _, err := Get(tx, id); err != nil {
			missing = errors.Is(err, ErrNotFound)
			return err
		}
		taken, err := slugTaken(tx, in.Slug, id)
		if err != nil {
			return err
		}
		if taken {
			conflict = true
			return ErrSlugTaken
		}
		return tx.Model(&Service{}).Where("id = ?", id).Updates(map[string]any{
			"title":       in.Title,
			"slug":        in.Slug,
			"description": in.Description,
			"icon":        in.Icon,
			"sort_order":  in.SortOrder,
			"published":   in.Published,
			"updated_at":  time.Now().UTC(),
		}).Error
	})
	switch {
	case missing:
		return nil, ErrNotFound
	case conflict:
		return nil, fmt.Errorf("%w: %s", ErrSlugTaken, in.Slug)
	case err != nil:
		return nil, fmt.Errorf("failed to update service %d: %w", id, err)
	}
	return Get(db, id)
}

// Delete removes service id.
func Delete(db *gorm.DB, logger *slog.Logger, id uint) error {
	var rows int64
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Delete(&Service{}, id)
		rows = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete service %d: %w", id, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
