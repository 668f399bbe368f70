package models

import (
	"time"
)

type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"type:text" json:"content"`
	DatePosted time.Time `gorm:"autoCreateTime;not null" json:"date_posted"`
	Likes      int       `gorm:"default:0" json:"likes"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	User       User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	PostID     uint      `gorm:"not null;index" json:"post_id"`
}

func (Comment) TableName() string {
	return "comment"
}
