package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL driver
	_ "github.com/jinzhu/gorm/dialects/sqlite"   // SQLite driver
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// PreviewStatus tracks prerendering of a link's target page.
type PreviewStatus string

const (
	PreviewStatusNone      PreviewStatus = ""
	PreviewStatusPending   PreviewStatus = "pending"
	PreviewStatusRendering PreviewStatus = "rendering"
	PreviewStatusCompleted PreviewStatus = "completed"
	PreviewStatusFailed    PreviewStatus = "failed"
)

// Link represents the data model for a shortened URL.
type Link struct {
	gorm.Model
	ShortCode     string `gorm:"unique_index;not null"`
	OriginalURL   string `gorm:"type:text;not null"`
	CreatorIP     string
	UserID        string        `gorm:"index"`
	PreviewHTML   string        `gorm:"type:text"` // Use text for potentially large HTML
	PreviewStatus PreviewStatus `gorm:"size:16"`
}

// Hit is one followed redirect.
type Hit struct {
	ID        uint   `gorm:"primary_key"`
	ShortCode string `gorm:"index;not null"`
	IPAddress string
	CreatedAt time.Time
}

// ErrDuplicateShortCode is returned by CreateLink when the short code is taken.
var ErrDuplicateShortCode = errors.New("short code already exists")

var DB *gorm.DB

// InitDB initializes the database connection and migrates the schema.
func InitDB(dialect, dataSourceName string) error {
	var err error
	DB, err = gorm.Open(dialect, dataSourceName)
	if err != nil {
		return err
	}

	if dialect == "sqlite3" {
		// Every connection to an in-memory database is a separate database.
		DB.DB().SetMaxOpenConns(1)
	}

	return Migrate()
}

// Migrate creates or updates the schema.
func Migrate() error {
	return DB.AutoMigrate(&Link{}, &Hit{}).Error
}

// GetLinkByShortCode retrieves a link by its short code.
func GetLinkByShortCode(shortCode string) (*Link, error) {
	var link Link
	if err := DB.Where("short_code = ?", shortCode).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// CreateLink creates a new link record in the database. The unique index on
// short_code is the final arbiter between racing allocations.
func CreateLink(link *Link) error {
	if err := DB.Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateShortCode, link.ShortCode)
		}
		return err
	}
	return nil
}

// GetLastShortCode returns the most recently stored short code of the given
// length, or "" when none has been stored.
func GetLastShortCode(length int) (string, error) {
	var link Link
	err := DB.Unscoped().
		Select("short_code").
		Where("LENGTH(short_code) = ?", length).
		Order("id DESC").
		First(&link).Error
	if gorm.IsRecordNotFoundError(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return link.ShortCode, nil
}

// GetShortCodes returns every stored short code of the given length,
// soft-deleted links included so their codes are never reissued.
func GetShortCodes(length int) ([]string, error) {
	var codes []string
	err := DB.Unscoped().
		Model(&Link{}).
		Where("LENGTH(short_code) = ?", length).
		Pluck("short_code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// CountShortCodes returns how many codes of the given length were issued.
func CountShortCodes(length int) (int, error) {
	var count int
	err := DB.Unscoped().
		Model(&Link{}).
		Where("LENGTH(short_code) = ?", length).
		Count(&count).Error
	return count, err
}

// GetLinksByUser returns the links created by userID, newest first.
func GetLinksByUser(userID string) ([]Link, error) {
	var links []Link
	if err := DB.Where("user_id = ?", userID).Order("id DESC").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// CreateHit records a followed redirect.
func CreateHit(hit *Hit) error {
	return DB.Create(hit).Error
}

// GetHits returns the hits recorded for shortCode, oldest first.
func GetHits(shortCode string) ([]Hit, error) {
	var hits []Hit
	if err := DB.Where("short_code = ?", shortCode).Order("created_at ASC").Find(&hits).Error; err != nil {
		return nil, err
	}
	return hits, nil
}

// UpdatePreviewStatus updates only the preview status of a link.
func UpdatePreviewStatus(shortCode string, status PreviewStatus) error {
	return DB.Model(&Link{}).Where("short_code = ?", shortCode).Update("preview_status", status).Error
}

// UpdatePreviewContent stores rendered HTML together with its status.
func UpdatePreviewContent(shortCode, html string, status PreviewStatus) error {
	return DB.Model(&Link{}).Where("short_code = ?", shortCode).Updates(map[string]interface{}{
		"preview_html":   html,
		"preview_status": status,
	}).Error
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
