package services

import (
	"errors"
	"fmt"
	"strings"

	"tickertalk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEmptyTitle   = errors.New("title is required")
	ErrEmptyContent = errors.New("content is required")
	ErrPostNotFound = errors.New("post not found")
)

// FeedService handles posts, comments, likes and live posts.
type FeedService struct {
	db *gorm.DB
}

func NewFeedService(db *gorm.DB) *FeedService {
	return &FeedService{db: db}
}

func (s *FeedService) CreatePost(userID uint, title, content, image string) (*models.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if len([]rune(title)) > 255 {
		return nil, invalid("title", "Title must be at most 255 characters")
	}
	if image == "" {
		image = models.DefaultPicture
	}
	post := models.Post{
		Title:      title,
		Content:    content,
		FileUpload: image,
		UserID:     userID,
	}
	if err := s.db.Create(&post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &post, nil
}

// ListPosts returns every post newest first with its creator.
func (s *FeedService) ListPosts() ([]models.Post, error) {
	var posts []models.Post
	err := s.db.Preload("Creator").Order("date_posted desc, id desc").Find(&posts).Error
	return posts, err
}

// ListPostsByUser is used by the profile page.
func (s *FeedService) ListPostsByUser(userID uint) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.Preload("Creator").Where("user_id = ?", userID).
		Order("date_posted desc, id desc").Find(&posts).Error
	return posts, err
}

// GetPost loads a post with its creator and comments, newest comment first.
func (s *FeedService) GetPost(id uint) (*models.Post, error) {
	var post models.Post
	err := s.db.Preload("Creator").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("date_posted desc, id desc")
		}).
		Preload("Comments.User").
		First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *FeedService) AddComment(postID, userID uint, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	var count int64
	if err := s.db.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrPostNotFound
	}
	comment := models.Comment{Content: content, UserID: userID, PostID: postID}
	if err := s.db.Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return &comment, nil
}

// AddLike records that userID likes postID. Repeated likes are no-ops;
// added reports whether this call created the like.
func (s *FeedService) AddLike(postID, userID uint) (likes int, added bool, err error) {
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id", "likes").First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		var existing int64
		if err := tx.Model(&models.Like{}).
			Where("user_id = ? AND post_id = ?", userID, postID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			likes = post.Likes
			return nil
		}

		if err := tx.Create(&models.Like{UserID: userID, PostID: postID}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("likes", gorm.Expr("likes + ?", 1)).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Select("likes").Where("id = ?", postID).
			Scan(&likes).Error; err != nil {
			return err
		}
		added = true
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a race with a concurrent like from the same user
		likes, err = s.likeCount(postID)
		return likes, false, err
	}
	return likes, added, err
}

// HasLiked reports whether userID already likes postID.
func (s *FeedService) HasLiked(postID, userID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.Like{}).Where("user_id = ? AND post_id = ?", userID, postID).Count(&count).Error
	return count > 0, err
}

func (s *FeedService) likeCount(postID uint) (int, error) {
	var likes int
	err := s.db.Model(&models.Post{}).Select("likes").Where("id = ?", postID).Scan(&likes).Error
	return likes, err
}

func (s *FeedService) CreateLivePost(userID uint, content string) (*models.LivePost, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len([]rune(content)) > 255 {
		content = string([]rune(content)[:255])
	}
	lp := models.LivePost{Content: content, UserID: userID}
	if err := s.db.Create(&lp).Error; err != nil {
		return nil, fmt.Errorf("create live post: %w", err)
	}
	if err := s.db.Preload("User").First(&lp, lp.ID).Error; err != nil {
		return nil, err
	}
	return &lp, nil
}

// RecentLivePosts returns up to limit live posts, newest first.
func (s *FeedService) RecentLivePosts(limit int) ([]models.LivePost, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []models.LivePost
	err := s.db.Preload("User").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true}).
		Order("id desc").
		Limit(limit).Find(&out).Error
	return out, err
}
