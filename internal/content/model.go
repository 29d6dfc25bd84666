package content

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Dream is a user-submitted narrative. AI analysis and tags arrive
// after creation; the record is valid without them.
type Dream struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`

	Title       *string `gorm:"type:varchar(200)"`
	Description string  `gorm:"type:text;not null"`
	AudioURL    *string `gorm:"type:varchar(500)"`

	Analysis          json.RawMessage `gorm:"type:jsonb"`
	Tags              pq.StringArray  `gorm:"type:text[];not null;default:'{}'"`
	GeneratedImageURL *string         `gorm:"type:varchar(500)"`

	TTLDays   int       `gorm:"not null;default:1"`
	IsPublic  bool      `gorm:"not null;default:true"`
	IsVisible bool      `gorm:"index;not null;default:true"`
	ViewCount int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"index;not null;default:now()"`
	ExpiresAt time.Time `gorm:"index;not null"`
}

// tagArray normalizes a possibly-nil tag slice for a text[] column.
func tagArray(tags []string) pq.StringArray {
	if tags == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(tags)
}

// Moment is an ephemeral photo or video post.
type Moment struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`

	Caption   *string         `gorm:"type:varchar(500)"`
	MediaType string          `gorm:"type:varchar(20);not null"` // photo|video
	MediaURL  string          `gorm:"type:varchar(500);not null"`
	Location  json.RawMessage `gorm:"type:jsonb"`

	Tags pq.StringArray `gorm:"type:text[];not null;default:'{}'"`

	IsVisible bool      `gorm:"index;not null;default:true"`
	ViewCount int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"index;not null;default:now()"`
	ExpiresAt time.Time `gorm:"index;not null"`
}
