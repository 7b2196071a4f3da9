package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Brent-Mendoza/blog-site/gateway"
	"github.com/Brent-Mendoza/blog-site/models"
)

// CommentState is the comment collection slice's state snapshot, scoped to
// one blog at a time, plus the edit-mode bookkeeping: at most one comment
// is designated "being edited", and the draft mirrors the comment form.
type CommentState struct {
	Comments []models.Comment
	Loading  bool
	Err      string

	// EditingID is the id of the comment being edited, 0 when the form
	// is in create mode.
	EditingID     int64
	DraftBody     string
	DraftImageURL *string
}

// Editing reports whether the form is in edit mode.
func (s CommentState) Editing() bool { return s.EditingID != 0 }

type commentPending struct{}
type commentListLoaded struct{ comments []models.Comment }
type commentListFailed struct{ msg string }
type commentCreated struct{ comment models.Comment }
type commentUpdated struct{ comment models.Comment }
type commentDeleted struct{ id int64 }
type commentFailed struct{ msg string }
type editStarted struct{ comment models.Comment }
type editCleared struct{}

// reduceComments is the pure state transition for the comment slice.
func reduceComments(st CommentState, ev interface{}) CommentState {
	switch e := ev.(type) {
	case commentPending:
		st.Loading = true
		st.Err = ""
	case commentListLoaded:
		st.Comments = e.comments
		st.Loading = false
		st.Err = ""
	case commentListFailed:
		// A failed fetch empties the list: the slice is scoped to one
		// blog and stale comments from another must not linger.
		st.Comments = nil
		st.Loading = false
		st.Err = e.msg
	case commentCreated:
		st.Comments = append([]models.Comment{e.comment}, st.Comments...)
		st.Loading = false
		st.Err = ""
		st = clearEdit(st)
	case commentUpdated:
		next := make([]models.Comment, len(st.Comments))
		copy(next, st.Comments)
		for i := range next {
			if next[i].ID == e.comment.ID {
				next[i] = e.comment
				break
			}
		}
		st.Comments = next
		st.Loading = false
		st.Err = ""
		st = clearEdit(st)
	case commentDeleted:
		next := make([]models.Comment, 0, len(st.Comments))
		for _, c := range st.Comments {
			if c.ID != e.id {
				next = append(next, c)
			}
		}
		st.Comments = next
		st.Loading = false
		st.Err = ""
	case commentFailed:
		st.Loading = false
		st.Err = e.msg
	case editStarted:
		st.EditingID = e.comment.ID
		st.DraftBody = e.comment.Body
		st.DraftImageURL = e.comment.ImageURL
	case editCleared:
		st = clearEdit(st)
	}
	return st
}

func clearEdit(st CommentState) CommentState {
	st.EditingID = 0
	st.DraftBody = ""
	st.DraftImageURL = nil
	return st
}

// CommentSlice owns the comment collection for the currently viewed blog.
type CommentSlice struct {
	mu    sync.Mutex
	state CommentState

	auth    gateway.Auth
	rows    gateway.Comments
	storage gateway.Blobs
	log     *zap.SugaredLogger
}

func newCommentSlice(auth gateway.Auth, rows gateway.Comments, storage gateway.Blobs, log *zap.SugaredLogger) *CommentSlice {
	return &CommentSlice{
		state:   CommentState{Loading: true},
		auth:    auth,
		rows:    rows,
		storage: storage,
		log:     log,
	}
}

// State returns the current snapshot.
func (s *CommentSlice) State() CommentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *CommentSlice) apply(ev interface{}) {
	s.mu.Lock()
	s.state = reduceComments(s.state, ev)
	s.mu.Unlock()
}

// FetchComments loads the full comment set for one blog, newest first, and
// replaces the local collection.
func (s *CommentSlice) FetchComments(ctx context.Context, blogID int64) error {
	s.apply(commentPending{})
	comments, err := s.rows.ListByBlog(ctx, blogID)
	if err != nil {
		s.apply(commentListFailed{err.Error()})
		return err
	}
	s.apply(commentListLoaded{comments})
	return nil
}

// BeginEdit designates a comment as being edited and seeds the draft from
// it. Any previous edit designation is replaced.
func (s *CommentSlice) BeginEdit(comment models.Comment) {
	s.apply(editStarted{comment})
}

// CancelEdit restores the comment form to its pristine state. No remote
// call is made.
func (s *CommentSlice) CancelEdit() {
	s.apply(editCleared{})
}

// SubmitComment routes to update when a comment is being edited and to
// create otherwise. Image lifecycle on edit: a new file replaces (and
// deletes) the prior blob; imageCleared deletes the prior blob and nulls
// the URL; otherwise the existing attachment is kept. Edit mode is cleared
// once the row operation has run, whichever way it went; an upload failure
// keeps the form as it was.
func (s *CommentSlice) SubmitComment(ctx context.Context, blogID int64, body string, image *ImageFile, imageCleared bool) (*models.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("comment body is empty")
	}

	s.apply(commentPending{})

	editingID, oldURL := s.editTarget()

	var imageURL *string
	switch {
	case image != nil:
		key := gateway.NewObjectKey("comments", image.Name)
		if err := s.storage.Upload(ctx, key, image.Data, image.ContentType); err != nil {
			s.apply(commentFailed{err.Error()})
			return nil, err
		}
		u := s.storage.PublicURL(key)
		imageURL = &u
		if editingID != 0 {
			s.removeBlob(ctx, oldURL)
		}
	case editingID != 0 && imageCleared:
		s.removeBlob(ctx, oldURL)
		imageURL = nil
	case editingID != 0:
		imageURL = oldURL
	}

	now := time.Now().UTC()

	if editingID != 0 {
		patch := gateway.CommentPatch{Body: body, ImageURL: imageURL, UpdatedAt: now}
		updated, err := s.rows.Update(ctx, editingID, patch)
		if err != nil {
			s.apply(commentFailed{err.Error()})
			s.apply(editCleared{})
			return nil, err
		}
		s.apply(commentUpdated{*updated})
		return updated, nil
	}

	user, err := s.auth.CurrentUser(ctx)
	if err == nil && user == nil {
		err = errors.New("not signed in")
	}
	if err != nil {
		s.apply(commentFailed{err.Error()})
		return nil, err
	}

	comment := models.Comment{
		BlogID:    blogID,
		UserID:    user.ID,
		Body:      body,
		ImageURL:  imageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.rows.Insert(ctx, &comment); err != nil {
		s.apply(commentFailed{err.Error()})
		return nil, err
	}

	s.apply(commentCreated{comment})
	return &comment, nil
}

// DeleteComment removes the comment's image blob (when it has one) and then
// the row, filtering the local collection on success.
func (s *CommentSlice) DeleteComment(ctx context.Context, id int64) error {
	s.apply(commentPending{})

	s.removeBlob(ctx, s.imageURLOf(id))

	if err := s.rows.Delete(ctx, id); err != nil {
		s.apply(commentFailed{err.Error()})
		return err
	}

	s.apply(commentDeleted{id})
	return nil
}

// removeBlob deletes the blob behind a public URL, best effort.
func (s *CommentSlice) removeBlob(ctx context.Context, url *string) {
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

// editTarget reads the current edit designation and the stored image URL of
// the designated comment.
func (s *CommentSlice) editTarget() (int64, *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.EditingID == 0 {
		return 0, nil
	}
	for i := range s.state.Comments {
		if s.state.Comments[i].ID == s.state.EditingID {
			return s.state.EditingID, s.state.Comments[i].ImageURL
		}
	}
	return s.state.EditingID, nil
}

func (s *CommentSlice) imageURLOf(id int64) *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Comments {
		if s.state.Comments[i].ID == id {
			return s.state.Comments[i].ImageURL
		}
	}
	return nil
}
