package models

import (
	"time"

	"gorm.io/datatypes"
)

// Post represents a blog article. AuthorID is written once at creation.
type Post struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	Title         string                      `gorm:"size:200;not null" json:"title"`
	Content       string                      `gorm:"type:text;not null" json:"content"`
	Excerpt       string                      `gorm:"size:200" json:"excerpt"`
	CategoryID    uint                        `gorm:"index;not null" json:"categoryId"`
	Tags          datatypes.JSONSlice[string] `json:"tags"`
	FeaturedImage string                      `gorm:"size:512" json:"featuredImage"`
	IsPublished   bool                        `gorm:"not null;default:false" json:"isPublished"`
	AuthorID      uint                        `gorm:"index;not null" json:"authorId"`
	ViewCount     int64                       `gorm:"not null;default:0" json:"viewCount"`
	CreatedAt     time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
	Category      Category                    `json:"category"`
	Author        User                        `gorm:"foreignKey:AuthorID" json:"author"`
	Comments      []Comment                   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments"`
}
