package entities

import "time"

// StoredCredential is a GORM model for telegram_sessions table
type StoredCredential struct {
	ID            int64     `gorm:"primaryKey"`
	UserID        int64     `gorm:"not null;index"`
	SessionString string    `gorm:"type:text;not null"`
	PhoneNumber   string    `gorm:"size:32;not null"`
	IsActive      bool      `gorm:"not null;default:true"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (StoredCredential) TableName() string {
	return "telegram_sessions"
}
