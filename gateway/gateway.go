// Package gateway abstracts the hosted backend the client talks to: the
// auth service, the managed relational store and the S3-compatible object
// store. Every call can fail and surfaces the backend's own message.
package gateway

import (
	"context"
	"time"

	"github.com/Brent-Mendoza/blog-site/models"
)

// BlogPageSize is the fixed page size for blog listings.
const BlogPageSize = 3

// Auth manages sessions against the hosted auth service.
type Auth interface {
	// Session returns the current session, refreshing an expired one when
	// possible. A nil session with a nil error means "not signed in".
	Session(ctx context.Context) (*models.Session, error)
	SignUp(ctx context.Context, email, password, username string) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
	// OnSessionChange registers a listener invoked on sign-in, sign-out
	// and token refresh. The listener receives nil when the session is
	// gone.
	OnSessionChange(fn func(*models.Session))
}

// BlogPatch carries the columns written by a blog update. ImageURL is
// written as given, including an explicit NULL.
type BlogPatch struct {
	Title     string
	Content   string
	ImageURL  *string
	UpdatedAt time.Time
}

// Blogs is row access for the blogs table, joined with profiles for the
// author username.
type Blogs interface {
	List(ctx context.Context, page int) ([]models.Blog, error)
	Insert(ctx context.Context, blog *models.Blog) error
	Update(ctx context.Context, id int64, patch BlogPatch) (*models.Blog, error)
	// ImageURL reads only the image column of one row (delete preflight).
	ImageURL(ctx context.Context, id int64) (*string, error)
	Delete(ctx context.Context, id int64) error
}

// CommentPatch carries the columns written by a comment update.
type CommentPatch struct {
	Body      string
	ImageURL  *string
	UpdatedAt time.Time
}

// Comments is row access for the comments table, scoped by blog id.
type Comments interface {
	ListByBlog(ctx context.Context, blogID int64) ([]models.Comment, error)
	Insert(ctx context.Context, comment *models.Comment) error
	Update(ctx context.Context, id int64, patch CommentPatch) (*models.Comment, error)
	Delete(ctx context.Context, id int64) error
}

// Profiles is row access for the profiles table, written once at
// registration.
type Profiles interface {
	Insert(ctx context.Context, profile models.Profile) error
}

// Blobs is the object store surface for image attachments.
type Blobs interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
	Remove(ctx context.Context, keys []string) error
	// KeyFromURL recovers the object key from a public URL, returning ""
	// when the URL does not point into the configured bucket.
	KeyFromURL(rawURL string) string
}

// Gateway bundles the backend surfaces the state slices consume.
type Gateway struct {
	Auth     Auth
	Blogs    Blogs
	Comments Comments
	Profiles Profiles
	Storage  Blobs
}
