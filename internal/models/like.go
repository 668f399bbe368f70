package models

import (
	"time"
)

// Like is the join row behind Post.LikedBy / User.LikedPosts.
// The composite primary key makes a (user, post) pair unique.
type Like struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	PostID    uint      `gorm:"primaryKey" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
