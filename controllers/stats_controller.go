package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/utils"
)

// StatsController provides platform-wide counters.
type StatsController struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB, log *zap.Logger) *StatsController {
	return &StatsController{db: db, log: log}
}

// GetStats returns user, post and comment counts plus total post views.
// A failing count reports 0 instead of failing the endpoint.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	var users, posts, published, comments, views int64

	count := func(name string, q *gorm.DB, dst *int64) {
		if err := q.Count(dst).Error; err != nil {
			s.log.Warn("stats count failed", zap.String("counter", name), zap.Error(err))
			*dst = 0
		}
	}
	count("users", db.Model(&models.User{}), &users)
	count("posts", db.Model(&models.Post{}), &posts)
	count("published_posts", db.Model(&models.Post{}).Where("is_published = ?", true), &published)
	count("comments", db.Model(&models.Comment{}), &comments)

	if err := db.Model(&models.Post{}).Select("COALESCE(SUM(view_count),0)").Scan(&views).Error; err != nil {
		s.log.Warn("stats view sum failed", zap.Error(err))
		views = 0
	}

	utils.Success(ctx, gin.H{
		"userCount":          users,
		"postCount":          posts,
		"publishedPostCount": published,
		"commentCount":       comments,
		"totalViews":         views,
	})
}
