package models

import (
	"time"
)

const DefaultPicture = "default.jpg"

type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	FirstName        string     `gorm:"size:255;not null" json:"first_name"`
	LastName         string     `gorm:"size:255;not null" json:"last_name"`
	Username         string     `gorm:"size:255;not null" json:"username"` // unique on LOWER(username), see db.ensureIndexes
	Email            string     `gorm:"size:255;not null" json:"email"`    // unique on LOWER(email)
	Password         string     `gorm:"size:255;not null" json:"-"`        // bcrypt hash
	Role             string     `gorm:"size:255;default:'user'" json:"role"`
	RegistrationDate time.Time  `gorm:"autoCreateTime" json:"registration_date"`
	LastLogin        *time.Time `json:"last_login"`
	ProfilePicture   string     `gorm:"size:255;default:'default.jpg'" json:"profile_picture"`

	Posts      []Post `gorm:"foreignKey:UserID" json:"-"`
	LikedPosts []Post `gorm:"many2many:likes;" json:"-"`
}

// FullName is used by templates and emails.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
