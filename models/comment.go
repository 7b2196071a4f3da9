package models

import "time"

// Comment represents a reply to a blog post. The body lives in the legacy
// "comment" column. AuthorUsername is denormalized from the profiles join
// at query time, same as Blog.
type Comment struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	BlogID         int64     `gorm:"index;not null" json:"blog_id"`
	UserID         string    `gorm:"size:36;index;not null" json:"user_id"`
	Body           string    `gorm:"column:comment;type:text" json:"comment"`
	ImageURL       *string   `gorm:"size:1024" json:"image_url"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	AuthorUsername string    `gorm:"->" json:"author_username,omitempty"`
}

// TableName maps Comment onto the comments table.
func (Comment) TableName() string { return "comments" }

// DisplayAuthor returns the joined username or the UnknownAuthor sentinel.
func (c *Comment) DisplayAuthor() string {
	if c.AuthorUsername == "" {
		return UnknownAuthor
	}
	return c.AuthorUsername
}

// Edited reports whether the comment has been updated since creation.
func (c *Comment) Edited() bool {
	return c.UpdatedAt.After(c.CreatedAt)
}
