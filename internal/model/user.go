package model

import "time"

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string     `gorm:"size:128;not null;uniqueIndex" json:"email"`
	FirstName    *string    `gorm:"size:64" json:"firstName"`
	LastName     *string    `gorm:"size:64" json:"lastName"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"-"`
	LastLogin    *time.Time `json:"last_login"`
	IsActive     bool       `gorm:"not null;default:true" json:"-"`
}
