package models

import (
	"time"
)

// LivePost is an ephemeral comment broadcast on the live channel. It is not tied to a Post.
type LivePost struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	Content string    `gorm:"size:255;not null" json:"content"`
	Date    time.Time `gorm:"autoCreateTime;index" json:"date"`
	UserID  uint      `gorm:"not null;index" json:"user_id"`
	User    User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
}
