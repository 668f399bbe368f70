package models

import (
	"time"
)

type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Content    string    `gorm:"type:text" json:"content"`
	DatePosted time.Time `gorm:"autoCreateTime;not null;index" json:"date_posted"`
	Likes      int       `gorm:"default:0" json:"likes"`
	FileUpload string    `gorm:"size:255;default:'default.jpg'" json:"file_upload"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Creator    User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"creator"`

	LikedBy  []User    `gorm:"many2many:likes;" json:"-"`
	Comments []Comment `gorm:"foreignKey:PostID" json:"comments,omitempty"`
}

func (Post) TableName() string {
	return "post"
}
