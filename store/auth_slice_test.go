package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brent-Mendoza/blog-site/models"
)

func newTestStore(t *testing.T) (*Store, *fakeAuth, *fakeBlogRows, *fakeCommentRows, *fakeProfiles, *fakeBlobs, *callLog) {
	t.Helper()
	gw, auth, blogs, comments, profiles, blobs, log := newFakeGateway()
	return New(gw, nil), auth, blogs, comments, profiles, blobs, log
}

func TestCheckSessionAnonymous(t *testing.T) {
	app, _, _, _, _, _, _ := newTestStore(t)

	require.True(t, app.Auth.State().Loading, "slice starts uninitialized")

	app.Auth.CheckSession(context.Background())

	st := app.Auth.State()
	assert.False(t, st.Loading)
	assert.False(t, st.Authenticated())
	assert.Empty(t, st.Err)
}

func TestCheckSessionRestoresExisting(t *testing.T) {
	app, auth, _, _, _, _, _ := newTestStore(t)
	auth.session = &models.Session{AccessToken: "tok", User: &models.User{ID: "uid-1", Email: "a@x.com"}}

	app.Auth.CheckSession(context.Background())

	st := app.Auth.State()
	require.True(t, st.Authenticated())
	assert.Equal(t, "a@x.com", st.User.Email)
	assert.False(t, st.Loading)
}

func TestCheckSessionCapturesErrorWithoutFailing(t *testing.T) {
	app, auth, _, _, _, _, _ := newTestStore(t)
	auth.sessionErr = errors.New("token refresh failed")

	app.Auth.CheckSession(context.Background())

	st := app.Auth.State()
	assert.False(t, st.Loading, "loading cleared unconditionally on completion")
	assert.Equal(t, "token refresh failed", st.Err)
	assert.Nil(t, st.Session)
}

func TestSignUpInsertsProfileRow(t *testing.T) {
	app, _, _, _, profiles, _, _ := newTestStore(t)

	err := app.Auth.SignUp(context.Background(), "a@x.com", "pw123456", "alice")
	require.NoError(t, err)

	st := app.Auth.State()
	require.True(t, st.Authenticated())
	assert.Equal(t, "alice", st.User.Username)
	assert.Equal(t, "alice", profiles.usernames["uid-alice"])
}

func TestSignUpSurfacesProfileInsertFailure(t *testing.T) {
	// Identity creation succeeded but the profile row failed: the
	// operation fails anyway, leaving an identity without a profile row.
	app, auth, _, _, profiles, _, _ := newTestStore(t)
	profiles.insertErr = errors.New("duplicate key value violates unique constraint")

	err := app.Auth.SignUp(context.Background(), "a@x.com", "pw123456", "alice")
	require.Error(t, err)

	st := app.Auth.State()
	assert.False(t, st.Authenticated())
	assert.Equal(t, profiles.insertErr.Error(), st.Err)
	assert.NotNil(t, auth.session, "the backend identity still exists")
}

func TestSignInFailureKeepsPriorState(t *testing.T) {
	app, auth, _, _, _, _, _ := newTestStore(t)

	require.NoError(t, app.Auth.SignIn(context.Background(), "a@x.com", "pw123456"))
	before := app.Auth.State()
	require.True(t, before.Authenticated())

	auth.signInErr = errors.New("invalid login credentials")
	err := app.Auth.SignIn(context.Background(), "a@x.com", "wrong")
	require.Error(t, err)

	st := app.Auth.State()
	assert.Equal(t, before.Session, st.Session, "session left untouched on failure")
	assert.Equal(t, "invalid login credentials", st.Err)
}

func TestSignOutClearsStateOnSuccess(t *testing.T) {
	app, _, _, _, _, _, _ := newTestStore(t)
	require.NoError(t, app.Auth.SignIn(context.Background(), "a@x.com", "pw123456"))

	require.NoError(t, app.Auth.SignOut(context.Background()))

	st := app.Auth.State()
	assert.Nil(t, st.Session)
	assert.Nil(t, st.User)
}

func TestSignOutFailureKeepsLocalSession(t *testing.T) {
	app, auth, _, _, _, _, _ := newTestStore(t)
	require.NoError(t, app.Auth.SignIn(context.Background(), "a@x.com", "pw123456"))

	auth.signOutErr = errors.New("network unreachable")
	err := app.Auth.SignOut(context.Background())
	require.Error(t, err)

	st := app.Auth.State()
	assert.True(t, st.Authenticated(), "local session not optimistically cleared")
	assert.Equal(t, "network unreachable", st.Err)
}

func TestSessionPushOverwritesUnconditionally(t *testing.T) {
	app, auth, _, _, _, _, _ := newTestStore(t)
	require.NoError(t, app.Auth.SignIn(context.Background(), "a@x.com", "pw123456"))

	refreshed := &models.Session{AccessToken: "tok-2", User: &models.User{ID: "uid-2"}}
	auth.push(refreshed)
	assert.Equal(t, refreshed, app.Auth.State().Session)

	// External sign-out pushes a nil session.
	auth.push(nil)
	st := app.Auth.State()
	assert.Nil(t, st.Session)
	assert.Nil(t, st.User)
}

func TestClearError(t *testing.T) {
	app, auth, _, _, _, _, _ := newTestStore(t)
	auth.signInErr = errors.New("invalid login credentials")
	_ = app.Auth.SignIn(context.Background(), "a@x.com", "pw")
	require.NotEmpty(t, app.Auth.State().Err)

	app.Auth.ClearError()
	assert.Empty(t, app.Auth.State().Err)
}
