package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"estate-web/internal/model"
	"estate-web/pkg/apierror"
)

// TokenStore persists the bearer token of each browser session.
type TokenStore interface {
	Load(ctx context.Context, sessionID string) (string, error)
	Save(ctx context.Context, sessionID string, token string) error
	Delete(ctx context.Context, sessionID string) error
}

type authAPI interface {
	Login(ctx context.Context, email string, password string) (string, error)
	Register(ctx context.Context, req model.RegisterRequest) (model.UserRecord, error)
	Me(ctx context.Context, token string) (model.SessionUser, error)
}

type AuthService struct {
	api      authAPI
	tokens   TokenStore
	pageSize int

	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewAuthService(api authAPI, tokens TokenStore, pageSize int) *AuthService {
	return &AuthService{
		api:      api,
		tokens:   tokens,
		pageSize: pageSize,
		sessions: map[string]*Session{},
		now:      time.Now,
	}
}

// anonymousMaxIdle bounds how long a session that never signed in is kept.
const anonymousMaxIdle = 15 * time.Minute

// Session returns the state holder for a browser session id. The persisted
// token is read back on first use and the profile resolved; later calls reuse
// the same object.
func (a *AuthService) Session(ctx context.Context, id string) *Session {
	s := a.lookup(id, false)
	s.touch(a.now())
	a.restore(ctx, s)
	return s
}

// NewSession returns the state holder for an id minted by this process.
// Nothing can be persisted under it yet, so the store is not consulted.
func (a *AuthService) NewSession(id string) *Session {
	s := a.lookup(id, true)
	s.touch(a.now())
	return s
}

func (a *AuthService) lookup(id string, minted bool) *Session {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[id]
	if !ok {
		s = newSession(id, a.pageSize)
		s.restored = minted
		a.sessions[id] = s
	}
	return s
}

// restore runs detached from the request so an aborted page load cannot
// leave a token behind without its profile. A failed read is retried on the
// next request.
func (a *AuthService) restore(ctx context.Context, s *Session) {
	s.restoreMu.Lock()
	defer s.restoreMu.Unlock()
	if s.restored {
		return
	}

	ctx = context.WithoutCancel(ctx)
	token, err := a.tokens.Load(ctx, s.id)
	if err != nil {
		slog.WarnContext(ctx, "failed to read persisted session token", "error", err)
		return
	}
	s.restored = true
	if token == "" {
		return
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if err := a.RefreshUser(ctx, s); err != nil {
		slog.DebugContext(ctx, "persisted session token rejected", "error", err)
	}
}

// Login exchanges credentials for a token, persists it and loads the profile.
func (a *AuthService) Login(ctx context.Context, s *Session, email string, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return apierror.New(apierror.CodeAuth, "Email and password are required", "", http.StatusUnprocessableEntity)
	}

	seq, _, err := s.begin(true)
	if err != nil {
		return err
	}
	defer s.finish(seq)

	return a.login(ctx, s, seq, email, password)
}

// Register creates the account and signs straight in with the same credentials.
func (a *AuthService) Register(ctx context.Context, s *Session, email string, password string, fullName string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apierror.Validation("email", "Email is required")
	}
	if password == "" {
		return apierror.Validation("password", "Password is required")
	}

	seq, _, err := s.begin(true)
	if err != nil {
		return err
	}
	defer s.finish(seq)

	req := model.RegisterRequest{Email: email, Password: password}
	if name := strings.TrimSpace(fullName); name != "" {
		req.FullName = &name
	}

	if _, err := a.api.Register(ctx, req); err != nil {
		return asCode(err, apierror.CodeValidation)
	}

	return a.login(ctx, s, seq, email, password)
}

func (a *AuthService) login(ctx context.Context, s *Session, seq uint64, email string, password string) error {
	token, err := a.api.Login(ctx, email, password)
	if err != nil {
		return asCode(err, apierror.CodeAuth)
	}

	if !s.apply(seq, func() { s.token = token }) {
		return model.ErrSuperseded
	}
	if !a.persist(ctx, s, seq, token) {
		return model.ErrSuperseded
	}

	user, err := a.api.Me(ctx, token)
	if err != nil {
		if s.apply(seq, func() { s.token = ""; s.user = nil }) {
			a.forget(ctx, s, seq)
		}
		return asCode(err, apierror.CodeAuth)
	}

	if !s.apply(seq, func() { s.user = &user }) {
		return model.ErrSuperseded
	}

	slog.InfoContext(ctx, "session signed in", "user_id", user.ID, "role", user.Role)
	return nil
}

// Logout clears the session locally; the backend is not contacted.
func (a *AuthService) Logout(ctx context.Context, s *Session) {
	seq := s.clear()
	s.users.reset()
	a.forget(ctx, s, seq)
}

// RefreshUser re-resolves the profile for the stored token. Any failure
// clears both token and profile so a stale token heals itself.
func (a *AuthService) RefreshUser(ctx context.Context, s *Session) error {
	seq, token, _ := s.begin(false)
	defer s.finish(seq)

	if token == "" {
		s.apply(seq, func() { s.user = nil })
		return nil
	}

	user, err := a.api.Me(ctx, token)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		if s.apply(seq, func() { s.token = ""; s.user = nil }) {
			a.forget(ctx, s, seq)
		}
		return err
	}

	s.apply(seq, func() { s.user = &user })
	return nil
}

// Sweep drops in-memory sessions idle for longer than maxIdle, or than
// anonymousMaxIdle when nobody signed in. Tokens stay persisted and are read
// back on the next request.
func (a *AuthService) Sweep(maxIdle time.Duration) int {
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for id, s := range a.sessions {
		limit := maxIdle
		if s.anonymous() && anonymousMaxIdle < limit {
			limit = anonymousMaxIdle
		}
		if s.idleSince(now) > limit {
			delete(a.sessions, id)
			removed++
		}
	}
	return removed
}

// persist stores token unless a newer action has taken over the session.
// Writes for one session are serialized, so a superseded login can never put
// its token back after a logout removed it.
func (a *AuthService) persist(ctx context.Context, s *Session, seq uint64, token string) bool {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	if !s.current(seq) {
		return false
	}
	if err := a.tokens.Save(context.WithoutCancel(ctx), s.id, token); err != nil {
		slog.ErrorContext(ctx, "failed to persist session token", "error", err)
	}
	s.written = seq
	return true
}

// forget deletes the stored token unless a later action already replaced it.
func (a *AuthService) forget(ctx context.Context, s *Session, seq uint64) {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	if s.written > seq {
		return
	}
	if err := a.tokens.Delete(context.WithoutCancel(ctx), s.id); err != nil {
		slog.ErrorContext(ctx, "failed to delete session token", "error", err)
	}
	s.written = 0
}

// asCode re-labels a backend failure while keeping its message verbatim.
func asCode(err error, code string) error {
	apiErr, ok := apierror.As(err)
	if !ok {
		return err
	}
	return apierror.New(code, apiErr.Message, apiErr.Details, apiErr.HTTPStatus)
}
