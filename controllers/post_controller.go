package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/aiblog/middleware"
	"github.com/cppla/aiblog/services"
	"github.com/cppla/aiblog/utils"
)

const (
	postListCachePrefix = "cache:posts:list:"
	postListCacheTTL    = 5 * time.Minute
)

// PostController serves posts and their comment threads.
type PostController struct {
	posts    *services.PostService
	comments *services.CommentService
	cache    utils.Cache
	log      *zap.Logger
}

// NewPostController creates a PostController.
func NewPostController(posts *services.PostService, comments *services.CommentService, cache utils.Cache, log *zap.Logger) *PostController {
	return &PostController{posts: posts, comments: comments, cache: cache, log: log}
}

// tagsField accepts tags either as a comma separated string or as a JSON array.
type tagsField string

func (t *tagsField) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = tagsField(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return errors.New("tags must be a string or an array of strings")
	}
	*t = tagsField(strings.Join(list, ","))
	return nil
}

type postRequest struct {
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Excerpt       string    `json:"excerpt"`
	Category      uint      `json:"category"`
	Tags          tagsField `json:"tags"`
	FeaturedImage string    `json:"featuredImage"`
	IsPublished   bool      `json:"isPublished"`
}

type postPatchRequest struct {
	Title         *string    `json:"title"`
	Content       *string    `json:"content"`
	Excerpt       *string    `json:"excerpt"`
	Category      *uint      `json:"category"`
	Tags          *tagsField `json:"tags"`
	FeaturedImage *string    `json:"featuredImage"`
	IsPublished   *bool      `json:"isPublished"`
}

func (r postPatchRequest) patch() services.PostPatch {
	p := services.PostPatch{
		Title:         r.Title,
		Content:       r.Content,
		Excerpt:       r.Excerpt,
		CategoryID:    r.Category,
		FeaturedImage: r.FeaturedImage,
		IsPublished:   r.IsPublished,
	}
	if r.Tags != nil {
		tags := string(*r.Tags)
		p.Tags = &tags
	}
	return p
}

// CreatePost stores a post authored by the caller.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx, 40020)
		return
	}
	post, err := p.posts.Create(ctx.Request.Context(), middleware.CurrentIdentity(ctx), services.PostDraft{
		Title:         req.Title,
		Content:       req.Content,
		Excerpt:       req.Excerpt,
		CategoryID:    req.Category,
		Tags:          string(req.Tags),
		FeaturedImage: req.FeaturedImage,
		IsPublished:   req.IsPublished,
	})
	if err != nil {
		respondError(ctx, p.log, err, 50020)
		return
	}
	p.cache.InvalidatePrefix(ctx.Request.Context(), postListCachePrefix)
	utils.Created(ctx, presentPostDetail(*post))
}

// ListPosts returns one page of posts, newest first.
func (p *PostController) ListPosts(ctx *gin.Context) {
	filter, ok := parsePostFilter(ctx)
	if !ok {
		return
	}
	if v := strings.TrimSpace(ctx.Query("author")); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40024, "invalid author")
			return
		}
		filter.AuthorID = uint(n)
	}
	p.respondList(ctx, filter)
}

// ListUserPosts lists one author's posts.
func (p *PostController) ListUserPosts(ctx *gin.Context) {
	authorID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	filter, ok := parsePostFilter(ctx)
	if !ok {
		return
	}
	filter.AuthorID = authorID
	p.respondList(ctx, filter)
}

func (p *PostController) respondList(ctx *gin.Context, filter services.PostFilter) {
	// Only unpinned, unsearched lists are cached to keep the key space small.
	cacheKey := ""
	if filter.Search == "" && filter.AsOf.IsZero() {
		pub := "any"
		if filter.Published != nil {
			pub = strconv.FormatBool(*filter.Published)
		}
		cacheKey = fmt.Sprintf("%scat=%d:author=%d:pub=%s:page=%d:size=%d",
			postListCachePrefix, filter.CategoryID, filter.AuthorID, pub, filter.Page, filter.PageSize)
		if b, ok := p.cache.GetBytes(ctx.Request.Context(), cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
			return
		}
	}

	page, err := p.posts.List(ctx.Request.Context(), filter)
	if err != nil {
		respondError(ctx, p.log, err, 50021)
		return
	}
	payload := presentPostPage(page)
	if cacheKey != "" {
		p.cache.SetJSON(ctx.Request.Context(), cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, postListCacheTTL)
	}
	utils.Success(ctx, payload)
}

// parsePostFilter reads paging and filter query parameters shared by the list endpoints.
func parsePostFilter(ctx *gin.Context) (services.PostFilter, bool) {
	f := services.PostFilter{
		Page:     atoiDefault(ctx.Query("page"), 1),
		PageSize: atoiDefault(ctx.DefaultQuery("page_size", ctx.Query("limit")), services.DefaultPageSize),
		Search:   strings.TrimSpace(ctx.Query("search")),
	}
	if v := strings.TrimSpace(ctx.Query("category")); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40023, "invalid category")
			return f, false
		}
		f.CategoryID = uint(n)
	}
	if v := strings.TrimSpace(ctx.Query("published")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40025, "invalid published flag")
			return f, false
		}
		f.Published = &b
	}
	if v := strings.TrimSpace(ctx.Query("as_of")); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40026, "as_of must be an RFC 3339 timestamp")
			return f, false
		}
		f.AsOf = t
	}
	return f, true
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// GetPost returns a post with its comments and counts one view.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	post, err := p.posts.Get(ctx.Request.Context(), postID)
	if err != nil {
		respondError(ctx, p.log, err, 50022)
		return
	}
	utils.Success(ctx, presentPostDetail(*post))
}

// UpdatePost applies a partial update from the author or an admin.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req postPatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx, 40027)
		return
	}
	post, err := p.posts.Update(ctx.Request.Context(), middleware.CurrentIdentity(ctx), postID, req.patch())
	if err != nil {
		respondError(ctx, p.log, err, 50023)
		return
	}
	p.cache.InvalidatePrefix(ctx.Request.Context(), postListCachePrefix)
	utils.Success(ctx, presentPostDetail(*post))
}

// DeletePost removes a post and its comments.
func (p *PostController) DeletePost(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := p.posts.Delete(ctx.Request.Context(), middleware.CurrentIdentity(ctx), postID); err != nil {
		respondError(ctx, p.log, err, 50024)
		return
	}
	p.cache.InvalidatePrefix(ctx.Request.Context(), postListCachePrefix)
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// CreateComment appends a comment to a post and returns it.
func (p *PostController) CreateComment(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx, 40028)
		return
	}
	comment, err := p.comments.Append(ctx.Request.Context(), middleware.CurrentIdentity(ctx), postID, req.Content)
	if err != nil {
		respondError(ctx, p.log, err, 50025)
		return
	}
	utils.Created(ctx, presentComment(*comment))
}

// ListComments returns a post's comments oldest first.
func (p *PostController) ListComments(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	comments, err := p.comments.List(ctx.Request.Context(), postID)
	if err != nil {
		respondError(ctx, p.log, err, 50026)
		return
	}
	utils.Success(ctx, gin.H{"items": presentComments(comments)})
}
