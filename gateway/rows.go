package gateway

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Brent-Mendoza/blog-site/models"
)

// joinProfiles is the denormalized author-username join shared by blog and
// comment listings. It is a read-time convenience, not an enforced
// relationship.
const joinProfiles = ", profiles.username AS author_username"

// BlogRows is the gorm-backed Blogs implementation.
type BlogRows struct {
	db *gorm.DB
}

// NewBlogRows wraps a gorm handle for the blogs table.
func NewBlogRows(db *gorm.DB) *BlogRows {
	return &BlogRows{db: db}
}

// List returns one fixed-size page ordered by creation time descending,
// with the author username joined in.
func (r *BlogRows) List(ctx context.Context, page int) ([]models.Blog, error) {
	if page < 0 {
		return nil, fmt.Errorf("invalid page %d", page)
	}
	var blogs []models.Blog
	err := r.db.WithContext(ctx).
		Model(&models.Blog{}).
		Select("blogs.*" + joinProfiles).
		Joins("INNER JOIN profiles ON profiles.id = blogs.user_id").
		Order("blogs.created_at DESC").
		Offset(page * BlogPageSize).
		Limit(BlogPageSize).
		Find(&blogs).Error
	if err != nil {
		return nil, err
	}
	return blogs, nil
}

// Insert creates the row and fills the generated id back into blog.
func (r *BlogRows) Insert(ctx context.Context, blog *models.Blog) error {
	return r.db.WithContext(ctx).Create(blog).Error
}

// Update patches the row by id and returns the updated row with the author
// join applied.
func (r *BlogRows) Update(ctx context.Context, id int64, patch BlogPatch) (*models.Blog, error) {
	updates := map[string]interface{}{
		"title":      patch.Title,
		"content":    patch.Content,
		"image_url":  patch.ImageURL,
		"updated_at": patch.UpdatedAt,
	}
	tx := r.db.WithContext(ctx).Model(&models.Blog{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var blog models.Blog
	err := r.db.WithContext(ctx).
		Model(&models.Blog{}).
		Select("blogs.*"+joinProfiles).
		Joins("INNER JOIN profiles ON profiles.id = blogs.user_id").
		Where("blogs.id = ?", id).
		Take(&blog).Error
	if err != nil {
		return nil, err
	}
	return &blog, nil
}

// ImageURL reads only the image column of one row.
func (r *BlogRows) ImageURL(ctx context.Context, id int64) (*string, error) {
	var row struct {
		ImageURL *string
	}
	err := r.db.WithContext(ctx).
		Model(&models.Blog{}).
		Select("image_url").
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	return row.ImageURL, nil
}

// Delete removes the row. Comment rows cascade at the data-store level.
func (r *BlogRows) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Blog{}, id).Error
}

// CommentRows is the gorm-backed Comments implementation.
type CommentRows struct {
	db *gorm.DB
}

// NewCommentRows wraps a gorm handle for the comments table.
func NewCommentRows(db *gorm.DB) *CommentRows {
	return &CommentRows{db: db}
}

// ListByBlog returns the full comment set for one blog, newest first.
func (r *CommentRows) ListByBlog(ctx context.Context, blogID int64) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("comments.*"+joinProfiles).
		Joins("INNER JOIN profiles ON profiles.id = comments.user_id").
		Where("comments.blog_id = ?", blogID).
		Order("comments.created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// Insert creates the row and fills the generated id back into comment.
func (r *CommentRows) Insert(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// Update patches the row by id and returns the updated row with the author
// join applied.
func (r *CommentRows) Update(ctx context.Context, id int64, patch CommentPatch) (*models.Comment, error) {
	updates := map[string]interface{}{
		"comment":    patch.Body,
		"image_url":  patch.ImageURL,
		"updated_at": patch.UpdatedAt,
	}
	tx := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var comment models.Comment
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("comments.*"+joinProfiles).
		Joins("INNER JOIN profiles ON profiles.id = comments.user_id").
		Where("comments.id = ?", id).
		Take(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// Delete removes the row.
func (r *CommentRows) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Comment{}, id).Error
}

// ProfileRows is the gorm-backed Profiles implementation.
type ProfileRows struct {
	db *gorm.DB
}

// NewProfileRows wraps a gorm handle for the profiles table.
func NewProfileRows(db *gorm.DB) *ProfileRows {
	return &ProfileRows{db: db}
}

// Insert writes the profile row created at registration.
func (r *ProfileRows) Insert(ctx context.Context, profile models.Profile) error {
	return r.db.WithContext(ctx).Create(&profile).Error
}
