package auth

import "time"

type User struct {
	ID           uint64 `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`

	IsActive  bool `gorm:"not null;default:true"`
	IsPremium bool `gorm:"not null;default:false"`

	// Brute-force protection
	FailedLoginAttempts int        `gorm:"not null;default:0"`
	LockedUntil         *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}
