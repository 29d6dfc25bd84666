package resonance

import "time"

// Resonance records a scored thematic match between one dream and one
// moment. Created once by the matcher; only the save action mutates it.
type Resonance struct {
	ID       uint64 `gorm:"primaryKey"`
	UserID   uint64 `gorm:"index;not null"`
	DreamID  uint64 `gorm:"index;not null"`
	MomentID uint64 `gorm:"index;not null"`

	Score       int    `gorm:"not null"` // 0..100
	Explanation string `gorm:"type:text"`

	IsSaved   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"index;not null;default:now()"`
}
