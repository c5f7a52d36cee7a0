package controllers

import (
	"time"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/services"
)

type userView struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	FullName  string    `json:"fullName"`
	Avatar    string    `json:"avatar"`
	Role      string    `json:"role,omitempty"`
	IsActive  *bool     `json:"isActive,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// presentUser renders a user. Email, role and state are only shown to the
// account itself or to admins.
func presentUser(u models.User, private bool) userView {
	v := userView{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
	if private {
		active := u.IsActive
		v.Email = u.Email
		v.Role = u.Role
		v.IsActive = &active
	}
	return v
}

type authorView struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	FullName  string `json:"fullName"`
	Avatar    string `json:"avatar"`
}

func presentAuthor(u models.User) authorView {
	return authorView{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		Avatar:    u.Avatar,
	}
}

type commentView struct {
	ID        uint       `json:"id"`
	PostID    uint       `json:"postId"`
	Content   string     `json:"content"`
	User      authorView `json:"user"`
	CreatedAt time.Time  `json:"createdAt"`
}

func presentComment(c models.Comment) commentView {
	return commentView{
		ID:        c.ID,
		PostID:    c.PostID,
		Content:   c.Content,
		User:      presentAuthor(c.User),
		CreatedAt: c.CreatedAt,
	}
}

func presentComments(cs []models.Comment) []commentView {
	out := make([]commentView, 0, len(cs))
	for _, c := range cs {
		out = append(out, presentComment(c))
	}
	return out
}

type postView struct {
	ID            uint            `json:"id"`
	Title         string          `json:"title"`
	Content       string          `json:"content"`
	Excerpt       string          `json:"excerpt"`
	Category      models.Category `json:"category"`
	Tags          []string        `json:"tags"`
	FeaturedImage string          `json:"featuredImage"`
	IsPublished   bool            `json:"isPublished"`
	ViewCount     *int64          `json:"viewCount,omitempty"`
	Author        authorView      `json:"author"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func presentPost(p models.Post) postView {
	tags := []string(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	v := postView{
		ID:            p.ID,
		Title:         p.Title,
		Content:       p.Content,
		Excerpt:       p.Excerpt,
		Category:      p.Category,
		Tags:          tags,
		FeaturedImage: p.FeaturedImage,
		IsPublished:   p.IsPublished,
		ViewCount:     &p.ViewCount,
		Author:        presentAuthor(p.Author),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	return v
}

// postDetailView is a single post with its comment thread.
type postDetailView struct {
	postView
	Comments []commentView `json:"comments"`
}

func presentPostDetail(p models.Post) postDetailView {
	return postDetailView{postView: presentPost(p), Comments: presentComments(p.Comments)}
}

type postPageView struct {
	Items      []postView          `json:"items"`
	Pagination services.Pagination `json:"pagination"`
}

func presentPostPage(page *services.PostPage) postPageView {
	items := make([]postView, 0, len(page.Items))
	for _, p := range page.Items {
		// list pages may be served from cache, so counters live on the detail view only
		v := presentPost(p)
		v.ViewCount = nil
		items = append(items, v)
	}
	return postPageView{Items: items, Pagination: page.Pagination}
}
