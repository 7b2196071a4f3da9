package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Brent-Mendoza/blog-site/config"
	"github.com/Brent-Mendoza/blog-site/models"
)

// AuthClient talks to the hosted auth service over its REST API. It owns the
// current session, refreshes it when expired, and fans session changes out
// to registered listeners. When a session file is configured the session is
// persisted there so restoration survives process restarts.
type AuthClient struct {
	baseURL string
	apiKey  string
	file    string
	http    *http.Client
	log     *zap.SugaredLogger

	mu        sync.Mutex
	session   *models.Session
	listeners []func(*models.Session)
}

// NewAuthClient creates an AuthClient from configuration.
func NewAuthClient(cfg config.AuthConfig, log *zap.SugaredLogger) *AuthClient {
	return &AuthClient{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		file:    cfg.SessionFile,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

type authUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

type sessionResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at"`
	User         *authUser `json:"user"`
}

// Session returns the current session, restoring it from disk and
// refreshing it through the refresh token when the access token is expired.
// A nil session with nil error means the user is not signed in.
func (a *AuthClient) Session(ctx context.Context) (*models.Session, error) {
	a.mu.Lock()
	if a.session == nil && a.file != "" {
		a.session = a.loadSessionFile()
	}
	s := a.session
	a.mu.Unlock()

	if s == nil {
		return nil, nil
	}
	if !s.Expired() {
		return s, nil
	}

	refreshed, err := a.refresh(ctx, s.RefreshToken)
	if err != nil {
		// Only a rejection from the auth service kills the session; a
		// transport failure leaves it in place for the next attempt.
		var rejection *apiError
		if errors.As(err, &rejection) {
			a.setSession(nil)
		}
		return nil, err
	}
	a.setSession(refreshed)
	return refreshed, nil
}

// SignUp creates a backend identity with the username embedded as profile
// metadata and returns the issued session.
func (a *AuthClient) SignUp(ctx context.Context, email, password, username string) (*models.Session, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     map[string]string{"username": username},
	}
	s, err := a.postSession(ctx, "/signup", body)
	if err != nil {
		return nil, err
	}
	a.setSession(s)
	return s, nil
}

// SignIn exchanges credentials for a session.
func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	body := map[string]interface{}{"email": email, "password": password}
	s, err := a.postSession(ctx, "/token?grant_type=password", body)
	if err != nil {
		return nil, err
	}
	a.setSession(s)
	return s, nil
}

// SignOut invalidates the remote session. The local session is cleared only
// when the remote call succeeds.
func (a *AuthClient) SignOut(ctx context.Context) error {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/logout", nil)
	if err != nil {
		return err
	}
	a.decorate(req, s.AccessToken)
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	a.setSession(nil)
	return nil
}

// CurrentUser returns the authenticated user, asking the auth service when
// the cached session has no user attached.
func (a *AuthClient) CurrentUser(ctx context.Context) (*models.User, error) {
	s, err := a.Session(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}
	if s.User != nil {
		u := *s.User
		return &u, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/user", nil)
	if err != nil {
		return nil, err
	}
	a.decorate(req, s.AccessToken)
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}

	var au authUser
	if err := json.NewDecoder(resp.Body).Decode(&au); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	u := au.toUser()
	a.mu.Lock()
	if a.session != nil {
		a.session.User = u
	}
	a.mu.Unlock()
	return u, nil
}

// OnSessionChange registers a listener for out-of-band session changes.
func (a *AuthClient) OnSessionChange(fn func(*models.Session)) {
	a.mu.Lock()
	a.listeners = append(a.listeners, fn)
	a.mu.Unlock()
}

func (a *AuthClient) refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		// Unrefreshable by construction; treated like a rejection.
		return nil, &apiError{msg: "session expired"}
	}
	body := map[string]interface{}{"refresh_token": refreshToken}
	return a.postSession(ctx, "/token?grant_type=refresh_token", body)
}

// postSession posts a JSON body and decodes a session response.
func (a *AuthClient) postSession(ctx context.Context, path string, body interface{}) (*models.Session, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	a.decorate(req, "")
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sr.AccessToken == "" {
		return nil, errors.New("auth service returned no session")
	}
	return sr.toSession(), nil
}

func (a *AuthClient) decorate(req *http.Request, bearer string) {
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("apikey", a.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
}

// setSession swaps the cached session, persists it and notifies listeners.
func (a *AuthClient) setSession(s *models.Session) {
	a.mu.Lock()
	a.session = s
	listeners := make([]func(*models.Session), len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	a.persistSession(s)
	for _, fn := range listeners {
		fn(s)
	}
}

func (a *AuthClient) persistSession(s *models.Session) {
	if a.file == "" {
		return
	}
	if s == nil {
		_ = os.Remove(a.file)
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := os.WriteFile(a.file, data, 0o600); err != nil && a.log != nil {
		a.log.Warnf("persist session: %v", err)
	}
}

func (a *AuthClient) loadSessionFile() *models.Session {
	data, err := os.ReadFile(a.file)
	if err != nil {
		return nil
	}
	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	if s.AccessToken == "" {
		return nil
	}
	return &s
}

func (u *authUser) toUser() *models.User {
	out := &models.User{ID: u.ID, Email: u.Email}
	if v, ok := u.UserMetadata["username"].(string); ok {
		out.Username = v
	}
	return out
}

func (sr *sessionResponse) toSession() *models.Session {
	s := &models.Session{
		AccessToken:  sr.AccessToken,
		RefreshToken: sr.RefreshToken,
	}
	switch {
	case sr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(sr.ExpiresAt, 0)
	case sr.ExpiresIn > 0:
		s.ExpiresAt = time.Now().Add(time.Duration(sr.ExpiresIn) * time.Second)
	default:
		s.ExpiresAt = tokenExpiry(sr.AccessToken)
	}
	if sr.User != nil {
		s.User = sr.User.toUser()
	}
	if s.User == nil {
		s.User = userFromToken(sr.AccessToken)
	}
	return s
}

// tokenExpiry reads the exp claim without verifying the signature; the
// client holds no signing secret.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// userFromToken recovers at least the subject id from the access token when
// the auth service response carried no user object.
func userFromToken(token string) *models.User {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}
	if claims.Subject == "" {
		return nil
	}
	return &models.User{ID: claims.Subject}
}

// apiError is a rejection the auth service itself responded with, as
// opposed to a transport failure that never reached it.
type apiError struct {
	msg string
}

func (e *apiError) Error() string { return e.msg }

// decodeAPIError surfaces the auth service's own error message verbatim
// when one is present in the response body.
func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Err              string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		for _, m := range []string{body.ErrorDescription, body.Msg, body.Message, body.Err} {
			if m != "" {
				return &apiError{msg: m}
			}
		}
	}
	return &apiError{msg: fmt.Sprintf("auth service: unexpected status %d", resp.StatusCode)}
}
