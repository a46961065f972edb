package entities

import "time"

// User is a GORM model for users table
type User struct {
	ID           int64     `gorm:"primaryKey"`
	Username     string    `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}
