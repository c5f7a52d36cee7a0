package services

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/aiblog/models"
)

// CategoryInput is the writable part of a category.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=500"`
}

// CategoryService manages the categories posts are filed under. Writes are admin only.
type CategoryService struct {
	db       *gorm.DB
	log      *zap.Logger
	validate *validator.Validate
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(db *gorm.DB, log *zap.Logger) *CategoryService {
	return &CategoryService{db: db, log: log, validate: newValidator()}
}

// List returns every category ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

// Get returns one category.
func (s *CategoryService) Get(ctx context.Context, id uint) (*models.Category, error) {
	var cat models.Category
	if err := s.db.WithContext(ctx).First(&cat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("category")
		}
		return nil, err
	}
	return &cat, nil
}

// categoryExists reports whether a category with id is stored.
func categoryExists(db *gorm.DB, id uint) (bool, error) {
	var count int64
	if err := db.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create stores a new category.
func (s *CategoryService) Create(ctx context.Context, id *Identity, in CategoryInput) (*models.Category, error) {
	if err := RequireAdmin(id); err != nil {
		return nil, err
	}
	cat := models.Category{}
	if err := s.apply(ctx, &cat, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("name", "category already exists")
		}
		return nil, err
	}
	s.log.Info("category created", zap.Uint("category_id", cat.ID), zap.String("slug", cat.Slug))
	return &cat, nil
}

// Update renames or re-describes a category.
func (s *CategoryService) Update(ctx context.Context, id *Identity, catID uint, in CategoryInput) (*models.Category, error) {
	if err := RequireAdmin(id); err != nil {
		return nil, err
	}
	cat, err := s.Get(ctx, catID)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, cat, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(cat).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("name", "category already exists")
		}
		return nil, err
	}
	return cat, nil
}

// Delete removes a category that no post references.
func (s *CategoryService) Delete(ctx context.Context, id *Identity, catID uint) error {
	if err := RequireAdmin(id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inUse int64
		if err := tx.Model(&models.Post{}).Where("category_id = ?", catID).Count(&inUse).Error; err != nil {
			return err
		}
		if inUse > 0 {
			return conflict("category", "category still has posts")
		}
		res := tx.Delete(&models.Category{}, catID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("category")
		}
		return nil
	})
}

// apply validates in and copies it onto cat, checking name uniqueness.
func (s *CategoryService) apply(ctx context.Context, cat *models.Category, in CategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateStruct(s.validate, in); err != nil {
		return err
	}
	sl := slug.Make(in.Name)
	if sl == "" {
		return invalid("name", "must contain letters or digits")
	}

	var count int64
	q := s.db.WithContext(ctx).Model(&models.Category{}).Where("name = ? OR slug = ?", in.Name, sl)
	if cat.ID != 0 {
		q = q.Where("id <> ?", cat.ID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return conflict("name", "category already exists")
	}

	cat.Name = in.Name
	cat.Slug = sl
	cat.Description = in.Description
	return nil
}
