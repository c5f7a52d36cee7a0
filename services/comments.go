package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/utils"
)

// CommentService is the append-only comment ledger. Comments are never
// edited, reordered or removed individually; they go away with their post.
type CommentService struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

// NewCommentService creates a CommentService.
func NewCommentService(db *gorm.DB, log *zap.Logger) *CommentService {
	return &CommentService{db: db, log: log, now: time.Now}
}

// WithClock replaces the service's time source.
func (s *CommentService) WithClock(now func() time.Time) *CommentService {
	s.now = now
	return s
}

// Append adds a comment by id to the post and returns the new comment with
// its commenter's display attributes.
func (s *CommentService) Append(ctx context.Context, id *Identity, postID uint, content string) (*models.Comment, error) {
	if err := RequireAuthenticated(id); err != nil {
		return nil, err
	}
	content = utils.SanitizeText(content)
	if content == "" {
		return nil, invalid("content", "is required")
	}

	comment := models.Comment{
		PostID:    postID,
		UserID:    id.UserID,
		Content:   content,
		CreatedAt: s.now().Truncate(time.Millisecond),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return notFound("post")
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Preload("User", displayUser).First(&comment, comment.ID).Error; err != nil {
		return nil, err
	}
	s.log.Debug("comment added", zap.Uint("post_id", postID), zap.Uint("comment_id", comment.ID))
	return &comment, nil
}

// List returns a post's comments in creation order.
func (s *CommentService) List(ctx context.Context, postID uint) ([]models.Comment, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, notFound("post")
	}
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Preload("User", displayUser).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}
