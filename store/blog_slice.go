package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Brent-Mendoza/blog-site/gateway"
	"github.com/Brent-Mendoza/blog-site/models"
)

// BlogState is the blog collection slice's state snapshot.
type BlogState struct {
	Blogs   []models.Blog
	Loading bool
	Err     string
}

type blogPending struct{}
type blogListLoaded struct{ blogs []models.Blog }
type blogCreated struct{ blog models.Blog }
type blogUpdated struct{ blog models.Blog }
type blogDeleted struct{ id int64 }
type blogFailed struct{ msg string }

// reduceBlogs is the pure state transition for the blog collection slice.
func reduceBlogs(st BlogState, ev interface{}) BlogState {
	switch e := ev.(type) {
	case blogPending:
		st.Loading = true
		st.Err = ""
	case blogListLoaded:
		// Whole-list replacement: rapid page navigation resolves by
		// last response wins, not request sequencing.
		st.Blogs = e.blogs
		st.Loading = false
		st.Err = ""
	case blogCreated:
		st.Blogs = append([]models.Blog{e.blog}, st.Blogs...)
		st.Loading = false
		st.Err = ""
	case blogUpdated:
		next := make([]models.Blog, len(st.Blogs))
		copy(next, st.Blogs)
		for i := range next {
			if next[i].ID == e.blog.ID {
				next[i] = e.blog
				break
			}
		}
		st.Blogs = next
		st.Loading = false
		st.Err = ""
	case blogDeleted:
		next := make([]models.Blog, 0, len(st.Blogs))
		for _, b := range st.Blogs {
			if b.ID != e.id {
				next = append(next, b)
			}
		}
		st.Blogs = next
		st.Loading = false
		st.Err = ""
	case blogFailed:
		st.Loading = false
		st.Err = e.msg
	}
	return st
}

// BlogSlice owns the paginated blog collection and its mutations, including
// the best-effort image blob lifecycle.
type BlogSlice struct {
	mu    sync.Mutex
	state BlogState

	auth    gateway.Auth
	rows    gateway.Blogs
	storage gateway.Blobs
	log     *zap.SugaredLogger
}

func newBlogSlice(auth gateway.Auth, rows gateway.Blogs, storage gateway.Blobs, log *zap.SugaredLogger) *BlogSlice {
	return &BlogSlice{
		state:   BlogState{Loading: true},
		auth:    auth,
		rows:    rows,
		storage: storage,
		log:     log,
	}
}

// State returns the current snapshot. The slice header is copied; entries
// must not be mutated by callers.
func (s *BlogSlice) State() BlogState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *BlogSlice) apply(ev interface{}) {
	s.mu.Lock()
	s.state = reduceBlogs(s.state, ev)
	s.mu.Unlock()
}

// FetchBlogs loads one page (size 3, newest first, author joined) and
// replaces the whole local collection.
func (s *BlogSlice) FetchBlogs(ctx context.Context, page int) error {
	s.apply(blogPending{})
	blogs, err := s.rows.List(ctx, page)
	if err != nil {
		s.apply(blogFailed{err.Error()})
		return err
	}
	s.apply(blogListLoaded{blogs})
	return nil
}

// CreateBlog inserts a new row for the authenticated user, uploading the
// image first when one is attached. An upload failure aborts the whole
// operation leaving no partial row. On success the new blog is unshifted
// onto the local collection without a re-fetch.
func (s *BlogSlice) CreateBlog(ctx context.Context, title, content string, image *ImageFile) (*models.Blog, error) {
	s.apply(blogPending{})

	var imageURL *string
	if image != nil {
		key := gateway.NewObjectKey("posts", image.Name)
		if err := s.storage.Upload(ctx, key, image.Data, image.ContentType); err != nil {
			s.apply(blogFailed{err.Error()})
			return nil, err
		}
		u := s.storage.PublicURL(key)
		imageURL = &u
	}

	user, err := s.auth.CurrentUser(ctx)
	if err == nil && user == nil {
		err = errors.New("not signed in")
	}
	if err != nil {
		// The uploaded blob is orphaned here; accepted, not remediated.
		s.apply(blogFailed{err.Error()})
		return nil, err
	}

	now := time.Now().UTC()
	blog := models.Blog{
		UserID:    user.ID,
		Title:     title,
		Content:   content,
		ImageURL:  imageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.rows.Insert(ctx, &blog); err != nil {
		s.apply(blogFailed{err.Error()})
		return nil, err
	}

	s.apply(blogCreated{blog})
	return &blog, nil
}

// UpdateBlog patches an owned row. Image lifecycle, in priority order:
// a new file replaces (and deletes) the prior blob; an explicit removal
// deletes the prior blob and nulls the URL; otherwise the stored URL is
// kept as is. updated_at is always stamped.
func (s *BlogSlice) UpdateBlog(ctx context.Context, id int64, title, content string, image *ImageFile, imageRemoved bool) (*models.Blog, error) {
	s.apply(blogPending{})

	oldURL, known := s.imageURLOf(id)
	var imageURL *string

	switch {
	case image != nil:
		key := gateway.NewObjectKey("posts", image.Name)
		if err := s.storage.Upload(ctx, key, image.Data, image.ContentType); err != nil {
			s.apply(blogFailed{err.Error()})
			return nil, err
		}
		u := s.storage.PublicURL(key)
		imageURL = &u
		s.removeBlob(ctx, oldURL)
	case imageRemoved:
		s.removeBlob(ctx, oldURL)
		imageURL = nil
	default:
		// Keeping the image needs the stored URL; the local collection may
		// not hold this row, and writing nil here would clear the column.
		if !known {
			stored, err := s.rows.ImageURL(ctx, id)
			if err != nil {
				s.apply(blogFailed{err.Error()})
				return nil, err
			}
			oldURL = stored
		}
		imageURL = oldURL
	}

	patch := gateway.BlogPatch{
		Title:     title,
		Content:   content,
		ImageURL:  imageURL,
		UpdatedAt: time.Now().UTC(),
	}
	updated, err := s.rows.Update(ctx, id, patch)
	if err != nil {
		s.apply(blogFailed{err.Error()})
		return nil, err
	}

	s.apply(blogUpdated{*updated})
	return updated, nil
}

// DeleteBlog removes the stored image blob (when the row has one) and then
// the row itself. The two deletes are not atomic with each other or with
// concurrent reads.
func (s *BlogSlice) DeleteBlog(ctx context.Context, id int64) error {
	s.apply(blogPending{})

	imageURL, err := s.rows.ImageURL(ctx, id)
	if err != nil {
		s.apply(blogFailed{err.Error()})
		return err
	}

	if imageURL != nil {
		if key := s.storage.KeyFromURL(*imageURL); key != "" {
			if err := s.storage.Remove(ctx, []string{key}); err != nil {
				s.apply(blogFailed{err.Error()})
				return err
			}
		}
	}

	if err := s.rows.Delete(ctx, id); err != nil {
		s.apply(blogFailed{err.Error()})
		return err
	}

	s.apply(blogDeleted{id})
	return nil
}

// removeBlob deletes the blob behind a public URL, best effort: a stale
// image left behind is logged, not surfaced.
func (s *BlogSlice) removeBlob(ctx context.Context, url *string) {
	if url == nil {
		return
	}
	key := s.storage.KeyFromURL(*url)
	if key == "" {
		return
	}
	if err := s.storage.Remove(ctx, []string{key}); err != nil {
		s.log.Warnf("remove stale blob %s: %v", key, err)
	}
}

// imageURLOf reads the locally known image URL for a row. The second return
// distinguishes "row not in the collection" from "row has no image".
func (s *BlogSlice) imageURLOf(id int64) (*string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Blogs {
		if s.state.Blogs[i].ID == id {
			return s.state.Blogs[i].ImageURL, true
		}
	}
	return nil, false
}
