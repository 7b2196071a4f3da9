package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/Brent-Mendoza/blog-site/gateway"
	"github.com/Brent-Mendoza/blog-site/models"
)

// callLog records gateway calls in order so tests can assert sequencing
// invariants (upload before insert, blob remove before row delete).
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) indexOf(prefix string) int {
	for i, c := range l.all() {
		if strings.HasPrefix(c, prefix) {
			return i
		}
	}
	return -1
}

const fakeBucket = "blog-images"

// fakeAuth is an in-memory Auth implementation.
type fakeAuth struct {
	session    *models.Session
	user       *models.User
	sessionErr error
	signUpErr  error
	signInErr  error
	signOutErr error
	listeners  []func(*models.Session)
}

func (f *fakeAuth) Session(context.Context) (*models.Session, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeAuth) SignUp(_ context.Context, email, _, username string) (*models.Session, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	f.user = &models.User{ID: "uid-" + username, Email: email, Username: username}
	f.session = &models.Session{AccessToken: "token-" + username, User: f.user}
	return f.session, nil
}

func (f *fakeAuth) SignIn(_ context.Context, email, _ string) (*models.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	if f.session == nil {
		f.user = &models.User{ID: "uid-signin", Email: email}
		f.session = &models.Session{AccessToken: "token-signin", User: f.user}
	}
	return f.session, nil
}

func (f *fakeAuth) SignOut(context.Context) error {
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.session = nil
	f.user = nil
	return nil
}

func (f *fakeAuth) CurrentUser(context.Context) (*models.User, error) {
	return f.user, nil
}

func (f *fakeAuth) OnSessionChange(fn func(*models.Session)) {
	f.listeners = append(f.listeners, fn)
}

func (f *fakeAuth) push(s *models.Session) {
	for _, fn := range f.listeners {
		fn(s)
	}
}

// fakeProfiles records profile inserts into a shared username map so the
// fake row stores can reproduce the author join.
type fakeProfiles struct {
	usernames map[string]string
	insertErr error
}

func (f *fakeProfiles) Insert(_ context.Context, p models.Profile) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.usernames[p.ID] = p.Username
	return nil
}

// fakeBlogRows is an in-memory Blogs implementation with the profiles join
// applied at read time.
type fakeBlogRows struct {
	log       *callLog
	usernames map[string]string
	rows      []models.Blog
	nextID    int64

	listErr   error
	insertErr error
	updateErr error
	deleteErr error
	imageErr  error
}

func (f *fakeBlogRows) List(_ context.Context, page int) ([]models.Blog, error) {
	f.log.add("blogs.list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	if page < 0 {
		return nil, fmt.Errorf("invalid page %d", page)
	}
	sorted := append([]models.Blog(nil), f.rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	start := page * gateway.BlogPageSize
	if start >= len(sorted) {
		return nil, nil
	}
	end := start + gateway.BlogPageSize
	if end > len(sorted) {
		end = len(sorted)
	}
	out := append([]models.Blog(nil), sorted[start:end]...)
	for i := range out {
		out[i].AuthorUsername = f.usernames[out[i].UserID]
	}
	return out, nil
}

func (f *fakeBlogRows) Insert(_ context.Context, blog *models.Blog) error {
	f.log.add("blogs.insert")
	if f.insertErr != nil {
		return f.insertErr
	}
	f.nextID++
	blog.ID = f.nextID
	f.rows = append(f.rows, *blog)
	return nil
}

func (f *fakeBlogRows) Update(_ context.Context, id int64, patch gateway.BlogPatch) (*models.Blog, error) {
	f.log.add("blogs.update")
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Title = patch.Title
			f.rows[i].Content = patch.Content
			f.rows[i].ImageURL = patch.ImageURL
			f.rows[i].UpdatedAt = patch.UpdatedAt
			out := f.rows[i]
			out.AuthorUsername = f.usernames[out.UserID]
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBlogRows) ImageURL(_ context.Context, id int64) (*string, error) {
	f.log.add("blogs.imageurl")
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			return f.rows[i].ImageURL, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBlogRows) Delete(_ context.Context, id int64) error {
	f.log.add(fmt.Sprintf("blogs.delete:%d", id))
	if f.deleteErr != nil {
		return f.deleteErr
	}
	next := f.rows[:0]
	for _, b := range f.rows {
		if b.ID != id {
			next = append(next, b)
		}
	}
	f.rows = next
	return nil
}

// fakeCommentRows is an in-memory Comments implementation.
type fakeCommentRows struct {
	log       *callLog
	usernames map[string]string
	rows      []models.Comment
	nextID    int64

	listErr   error
	insertErr error
	updateErr error
	deleteErr error
}

func (f *fakeCommentRows) ListByBlog(_ context.Context, blogID int64) ([]models.Comment, error) {
	f.log.add("comments.list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Comment
	for _, c := range f.rows {
		if c.BlogID == blogID {
			c.AuthorUsername = f.usernames[c.UserID]
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeCommentRows) Insert(_ context.Context, comment *models.Comment) error {
	f.log.add("comments.insert")
	if f.insertErr != nil {
		return f.insertErr
	}
	f.nextID++
	comment.ID = f.nextID
	f.rows = append(f.rows, *comment)
	return nil
}

func (f *fakeCommentRows) Update(_ context.Context, id int64, patch gateway.CommentPatch) (*models.Comment, error) {
	f.log.add("comments.update")
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Body = patch.Body
			f.rows[i].ImageURL = patch.ImageURL
			f.rows[i].UpdatedAt = patch.UpdatedAt
			out := f.rows[i]
			out.AuthorUsername = f.usernames[out.UserID]
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCommentRows) Delete(_ context.Context, id int64) error {
	f.log.add(fmt.Sprintf("comments.delete:%d", id))
	if f.deleteErr != nil {
		return f.deleteErr
	}
	next := f.rows[:0]
	for _, c := range f.rows {
		if c.ID != id {
			next = append(next, c)
		}
	}
	f.rows = next
	return nil
}

// fakeBlobs is an in-memory Blobs implementation using the same public URL
// shape as the real store.
type fakeBlobs struct {
	log       *callLog
	uploaded  map[string][]byte
	removed   []string
	uploadErr error
	removeErr error
}

func newFakeBlobs(log *callLog) *fakeBlobs {
	return &fakeBlobs{log: log, uploaded: map[string][]byte{}}
}

func (f *fakeBlobs) Upload(_ context.Context, key string, data []byte, _ string) error {
	f.log.add("storage.upload:" + key)
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploaded[key] = data
	return nil
}

func (f *fakeBlobs) PublicURL(key string) string {
	return "http://127.0.0.1:9000/" + fakeBucket + "/" + key
}

func (f *fakeBlobs) Remove(_ context.Context, keys []string) error {
	f.log.add("storage.remove:" + strings.Join(keys, ","))
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, keys...)
	return nil
}

func (f *fakeBlobs) KeyFromURL(rawURL string) string {
	marker := "/" + fakeBucket + "/"
	idx := strings.Index(rawURL, marker)
	if idx < 0 {
		return ""
	}
	return rawURL[idx+len(marker):]
}

// newFakeGateway wires a full in-memory gateway sharing one call log and
// one username map.
func newFakeGateway() (gateway.Gateway, *fakeAuth, *fakeBlogRows, *fakeCommentRows, *fakeProfiles, *fakeBlobs, *callLog) {
	log := &callLog{}
	usernames := map[string]string{}
	auth := &fakeAuth{}
	blogs := &fakeBlogRows{log: log, usernames: usernames}
	comments := &fakeCommentRows{log: log, usernames: usernames}
	profiles := &fakeProfiles{usernames: usernames}
	blobs := newFakeBlobs(log)
	gw := gateway.Gateway{Auth: auth, Blogs: blogs, Comments: comments, Profiles: profiles, Storage: blobs}
	return gw, auth, blogs, comments, profiles, blobs, log
}
