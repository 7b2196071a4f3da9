// Package store holds the client-side application state: three slices
// (session, blog collection, comment collection) that mediate between the
// view layer and the remote backend gateway. Each slice owns its state
// exclusively; transitions are pure reduce functions over events, and the
// exported operations run the remote call sequences and commit the
// resulting events.
package store

import (
	"go.uber.org/zap"

	"github.com/Brent-Mendoza/blog-site/gateway"
)

// ImageFile is an in-memory image attachment selected by the view layer.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Store aggregates the application state slices. It is passed by reference
// to the view layer.
type Store struct {
	Auth     *AuthSlice
	Blogs    *BlogSlice
	Comments *CommentSlice
}

// New wires the slices onto the gateway and subscribes the session slice to
// the gateway's session change push channel.
func New(gw gateway.Gateway, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	st := &Store{
		Auth:     newAuthSlice(gw.Auth, gw.Profiles, log),
		Blogs:    newBlogSlice(gw.Auth, gw.Blogs, gw.Storage, log),
		Comments: newCommentSlice(gw.Auth, gw.Comments, gw.Storage, log),
	}

	// Out-of-band session changes (token refresh, external sign-out)
	// overwrite the session slice unconditionally.
	gw.Auth.OnSessionChange(st.Auth.SetSession)

	return st
}
