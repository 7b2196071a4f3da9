package models

import "time"

// UnknownAuthor is the sentinel shown when the profiles join yields nothing
// for a row (profile deleted or never written).
const UnknownAuthor = "Unknown User"

// Blog represents a blog post authored by a user. AuthorUsername is a
// read-only column denormalized from the profiles join at query time; it is
// never written back.
type Blog struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	UserID         string    `gorm:"size:36;index;not null" json:"user_id"`
	Title          string    `gorm:"size:255" json:"title"`
	Content        string    `gorm:"type:text" json:"content"`
	ImageURL       *string   `gorm:"size:1024" json:"image_url"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	AuthorUsername string    `gorm:"->" json:"author_username,omitempty"`
}

// TableName maps Blog onto the blogs table.
func (Blog) TableName() string { return "blogs" }

// DisplayAuthor returns the joined username, falling back to the
// UnknownAuthor sentinel when the join produced nothing.
func (b *Blog) DisplayAuthor() string {
	if b.AuthorUsername == "" {
		return UnknownAuthor
	}
	return b.AuthorUsername
}

// Edited reports whether the row has been updated since creation.
// updated_at equal to created_at means "never edited".
func (b *Blog) Edited() bool {
	return b.UpdatedAt.After(b.CreatedAt)
}
