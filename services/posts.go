package services

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/utils"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PostDraft is the input for a new post. Tags is a comma separated list.
type PostDraft struct {
	Title         string `json:"title" validate:"required,max=200"`
	Content       string `json:"content" validate:"required"`
	Excerpt       string `json:"excerpt" validate:"max=200"`
	CategoryID    uint   `json:"category" validate:"required"`
	Tags          string `json:"tags"`
	FeaturedImage string `json:"featuredImage" validate:"omitempty,url,max=512"`
	IsPublished   bool   `json:"isPublished"`
}

// PostPatch lists the editable post fields. Nil fields are left untouched.
// The author is not part of it and can never be changed.
type PostPatch struct {
	Title         *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content       *string `json:"content" validate:"omitempty,min=1"`
	Excerpt       *string `json:"excerpt" validate:"omitempty,max=200"`
	CategoryID    *uint   `json:"category" validate:"omitempty,min=1"`
	Tags          *string `json:"tags"`
	FeaturedImage *string `json:"featuredImage" validate:"omitempty,url,max=512"`
	IsPublished   *bool   `json:"isPublished"`
}

// PostFilter selects a page of posts.
type PostFilter struct {
	Page       int
	PageSize   int
	Search     string
	CategoryID uint
	AuthorID   uint
	Published  *bool
	// AsOf pins the listing to posts created at or before it. Zero means now.
	AsOf time.Time
}

// PageRef points at an adjacent page.
type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	Total      int64     `json:"total"`
	TotalPages int       `json:"totalPages"`
	AsOf       time.Time `json:"asOf"`
	Next       *PageRef  `json:"next,omitempty"`
	Prev       *PageRef  `json:"prev,omitempty"`
}

// PostPage is one page of posts.
type PostPage struct {
	Items      []models.Post `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// PostService is the content repository for posts.
type PostService struct {
	db          *gorm.DB
	log         *zap.Logger
	validate    *validator.Validate
	maxPageSize int
	now         func() time.Time
}

// NewPostService creates a PostService. maxPageSize <= 0 selects MaxPageSize.
func NewPostService(db *gorm.DB, maxPageSize int, log *zap.Logger) *PostService {
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	return &PostService{db: db, log: log, validate: newValidator(), maxPageSize: maxPageSize, now: time.Now}
}

// WithClock replaces the service's time source used for creation timestamps and snapshots.
func (s *PostService) WithClock(now func() time.Time) *PostService {
	s.now = now
	return s
}

// NormalizeTags splits a comma separated list, trimming each entry and dropping empties.
func NormalizeTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// NewPagination computes page metadata for total rows.
func NewPagination(page, pageSize int, total int64, asOf time.Time) Pagination {
	p := Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
		AsOf:       asOf,
	}
	if int64(page)*int64(pageSize) < total {
		p.Next = &PageRef{Page: page + 1, Limit: pageSize}
	}
	if page > 1 {
		p.Prev = &PageRef{Page: page - 1, Limit: pageSize}
	}
	return p
}

// Create stores a post authored by id.
func (s *PostService) Create(ctx context.Context, id *Identity, d PostDraft) (*models.Post, error) {
	if err := RequireAuthenticated(id); err != nil {
		return nil, err
	}
	d.Title = utils.SanitizeText(d.Title)
	d.Content = strings.TrimSpace(utils.Sanitize(d.Content))
	d.Excerpt = utils.SanitizeText(d.Excerpt)
	d.FeaturedImage = strings.TrimSpace(d.FeaturedImage)
	if err := validateStruct(s.validate, d); err != nil {
		return nil, err
	}

	// datetime columns keep milliseconds
	now := s.now().Truncate(time.Millisecond)
	post := models.Post{
		Title:         d.Title,
		Content:       d.Content,
		Excerpt:       d.Excerpt,
		CategoryID:    d.CategoryID,
		Tags:          datatypes.JSONSlice[string](NormalizeTags(d.Tags)),
		FeaturedImage: d.FeaturedImage,
		IsPublished:   d.IsPublished,
		AuthorID:      id.UserID,
		ViewCount:     0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := categoryExists(tx, d.CategoryID)
		if err != nil {
			return err
		}
		if !ok {
			return invalid("category", "category does not exist")
		}
		return tx.Create(&post).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("post created", zap.Uint("post_id", post.ID), zap.Uint("author_id", post.AuthorID))
	return s.load(ctx, post.ID)
}

// Get returns a post with its category, author and comments. Every call counts one view.
func (s *PostService) Get(ctx context.Context, postID uint) (*models.Post, error) {
	res := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, notFound("post")
	}
	return s.load(ctx, postID)
}

// List returns one page of posts, newest first.
func (s *PostService) List(ctx context.Context, f PostFilter) (*PostPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > s.maxPageSize {
		f.PageSize = s.maxPageSize
	}
	if f.AsOf.IsZero() {
		f.AsOf = s.now()
	}
	f.AsOf = f.AsOf.In(s.now().Location())

	var (
		posts []models.Post
		total int64
	)
	// Count and rows come from one transaction so they describe the same snapshot.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&models.Post{}).Where("created_at <= ?", f.AsOf)
		if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
			// titles are plain text, bodies are sanitized HTML with entities
			plain := "%" + escapeLike(search) + "%"
			escaped := "%" + escapeLike(html.EscapeString(search)) + "%"
			query = query.Where(
				"LOWER(title) LIKE ? ESCAPE '!' OR LOWER(content) LIKE ? ESCAPE '!' OR LOWER(content) LIKE ? ESCAPE '!'",
				plain, plain, escaped)
		}
		if f.CategoryID != 0 {
			query = query.Where("category_id = ?", f.CategoryID)
		}
		if f.AuthorID != 0 {
			query = query.Where("author_id = ?", f.AuthorID)
		}
		if f.Published != nil {
			query = query.Where("is_published = ?", *f.Published)
		}

		if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return err
		}
		return query.
			Preload("Category").
			Preload("Author", displayUser).
			Order("created_at DESC").Order("id DESC").
			Offset((f.Page - 1) * f.PageSize).
			Limit(f.PageSize).
			Find(&posts).Error
	})
	if err != nil {
		return nil, err
	}

	return &PostPage{Items: posts, Pagination: NewPagination(f.Page, f.PageSize, total, f.AsOf)}, nil
}

// Update applies patch to a post owned by id (or any post when id is admin).
func (s *PostService) Update(ctx context.Context, id *Identity, postID uint, patch PostPatch) (*models.Post, error) {
	if err := RequireAuthenticated(id); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("post")
			}
			return err
		}
		if err := requireMutate(id, post); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if patch.Title != nil {
			t := utils.SanitizeText(*patch.Title)
			patch.Title = &t
			updates["title"] = t
		}
		if patch.Content != nil {
			c := strings.TrimSpace(utils.Sanitize(*patch.Content))
			patch.Content = &c
			updates["content"] = c
		}
		if patch.Excerpt != nil {
			e := utils.SanitizeText(*patch.Excerpt)
			patch.Excerpt = &e
			updates["excerpt"] = e
		}
		if patch.FeaturedImage != nil {
			fi := strings.TrimSpace(*patch.FeaturedImage)
			patch.FeaturedImage = &fi
			updates["featured_image"] = fi
		}
		if err := validateStruct(s.validate, patch); err != nil {
			return err
		}
		if patch.Title != nil && *patch.Title == "" {
			return invalid("title", "is required")
		}
		if patch.Content != nil && *patch.Content == "" {
			return invalid("content", "is required")
		}
		if patch.CategoryID != nil && *patch.CategoryID != post.CategoryID {
			ok, err := categoryExists(tx, *patch.CategoryID)
			if err != nil {
				return err
			}
			if !ok {
				return invalid("category", "category does not exist")
			}
			updates["category_id"] = *patch.CategoryID
		}
		if patch.Tags != nil {
			updates["tags"] = datatypes.JSONSlice[string](NormalizeTags(*patch.Tags))
		}
		if patch.IsPublished != nil {
			updates["is_published"] = *patch.IsPublished
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = s.now()
		return tx.Model(&post).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, postID)
}

// Delete removes a post together with its comments.
func (s *PostService) Delete(ctx context.Context, id *Identity, postID uint) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("post")
			}
			return err
		}
		if err := requireMutate(id, post); err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		return err
	}
	s.log.Info("post deleted", zap.Uint("post_id", postID), zap.Uint("by", id.UserID))
	return nil
}

// load fetches a post with its associations without counting a view.
func (s *PostService) load(ctx context.Context, postID uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Author", displayUser).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Comments.User", displayUser).
		First(&post, postID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("post")
		}
		return nil, err
	}
	return &post, nil
}

// displayUser limits a preloaded user to its public display columns.
func displayUser(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username", "first_name", "last_name", "avatar")
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// escapeLike makes LIKE wildcards in user input match literally.
// '!' is the escape character since backslash handling differs between dialects.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
