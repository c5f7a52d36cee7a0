package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/aiblog/middleware"
	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/services"
	"github.com/cppla/aiblog/utils"
)

const categoryListCacheKey = "cache:categories:list"

// CategoryController serves categories. Writes are admin only.
type CategoryController struct {
	categories *services.CategoryService
	cache      utils.Cache
	log        *zap.Logger
}

// NewCategoryController creates a CategoryController.
func NewCategoryController(categories *services.CategoryService, cache utils.Cache, log *zap.Logger) *CategoryController {
	return &CategoryController{categories: categories, cache: cache, log: log}
}

// ListCategories returns every category. The list is display data, so a
// failing store yields an empty list rather than an error.
func (c *CategoryController) ListCategories(ctx *gin.Context) {
	if b, ok := c.cache.GetBytes(ctx.Request.Context(), categoryListCacheKey); ok {
		ctx.Data(200, "application/json; charset=utf-8", b)
		return
	}
	cats, err := c.categories.List(ctx.Request.Context())
	if err != nil {
		c.log.Warn("category list unavailable", zap.Error(err))
		utils.Success(ctx, gin.H{"items": []models.Category{}})
		return
	}
	payload := gin.H{"items": cats}
	c.cache.SetJSON(ctx.Request.Context(), categoryListCacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, 0)
	utils.Success(ctx, payload)
}

// GetCategory returns one category.
func (c *CategoryController) GetCategory(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	cat, err := c.categories.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, c.log, err, 50040)
		return
	}
	utils.Success(ctx, cat)
}

// CreateCategory adds a category.
func (c *CategoryController) CreateCategory(ctx *gin.Context) {
	var in services.CategoryInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badPayload(ctx, 40040)
		return
	}
	cat, err := c.categories.Create(ctx.Request.Context(), middleware.CurrentIdentity(ctx), in)
	if err != nil {
		respondError(ctx, c.log, err, 50041)
		return
	}
	c.cache.InvalidatePrefix(ctx.Request.Context(), categoryListCacheKey)
	utils.Created(ctx, cat)
}

// UpdateCategory renames or re-describes a category.
func (c *CategoryController) UpdateCategory(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var in services.CategoryInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badPayload(ctx, 40041)
		return
	}
	cat, err := c.categories.Update(ctx.Request.Context(), middleware.CurrentIdentity(ctx), id, in)
	if err != nil {
		respondError(ctx, c.log, err, 50042)
		return
	}
	c.cache.InvalidatePrefix(ctx.Request.Context(), categoryListCacheKey)
	// posts embed their category
	c.cache.InvalidatePrefix(ctx.Request.Context(), postListCachePrefix)
	utils.Success(ctx, cat)
}

// DeleteCategory removes a category no post uses.
func (c *CategoryController) DeleteCategory(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.categories.Delete(ctx.Request.Context(), middleware.CurrentIdentity(ctx), id); err != nil {
		respondError(ctx, c.log, err, 50043)
		return
	}
	c.cache.InvalidatePrefix(ctx.Request.Context(), categoryListCacheKey)
	utils.Success(ctx, gin.H{"message": "category deleted"})
}
