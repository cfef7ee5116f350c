package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const (
	SessionCookieName = "estate_session"
	CSRFFieldName     = "csrf_token"
	CSRFHeaderName    = "X-CSRF-Token"

	formMemory = 8 << 20
)

type contextKey string

const (
	sessionIDContextKey  contextKey = "session_id"
	sessionNewContextKey contextKey = "session_new"
	csrfContextKey       contextKey = "csrf_token"
)

// SessionKeys are the signing keys derived from the configured secret.
type SessionKeys struct {
	cookie []byte
	csrf   []byte
}

// DeriveSessionKeys expands secret into independent keys for the session
// cookie signature and the CSRF tokens.
func DeriveSessionKeys(secret string) (SessionKeys, error) {
	if secret == "" {
		return SessionKeys{}, errors.New("session secret is required")
	}

	cookieKey, err := deriveKey(secret, "estate-web session cookie")
	if err != nil {
		return SessionKeys{}, err
	}
	csrfKey, err := deriveKey(secret, "estate-web csrf")
	if err != nil {
		return SessionKeys{}, err
	}
	return SessionKeys{cookie: cookieKey, csrf: csrfKey}, nil
}

func deriveKey(secret string, info string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

// CSRFToken is the form token bound to a session id.
func (k SessionKeys) CSRFToken(sessionID string) string {
	mac := hmac.New(sha256.New, k.csrf)
	mac.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (k SessionKeys) signSession(sessionID string, now time.Time, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sessionID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString(k.cookie)
}

func (k SessionKeys) parseSession(raw string) (string, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid session signing method")
		}
		return k.cookie, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", errors.New("invalid session cookie")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid session claims")
	}
	sid, _ := claims["sid"].(string)
	if _, err := uuid.Parse(sid); err != nil {
		return "", errors.New("invalid session id")
	}
	return sid, nil
}

type SessionMiddleware struct {
	keys   SessionKeys
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessionMiddleware(keys SessionKeys, ttl time.Duration, secure bool) *SessionMiddleware {
	return &SessionMiddleware{keys: keys, ttl: ttl, secure: secure, now: time.Now}
}

// Handler attaches the browser session id to the request context. A missing,
// forged or expired cookie is replaced by a fresh session.
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""
		minted := false
		if cookie, err := r.Cookie(SessionCookieName); err == nil {
			sessionID, err = m.keys.parseSession(cookie.Value)
			if err != nil {
				slog.DebugContext(r.Context(), "session cookie rejected", "error", err)
			}
		}

		if sessionID == "" {
			sessionID = uuid.NewString()
			minted = true
			value, err := m.keys.signSession(sessionID, m.now(), m.ttl)
			if err != nil {
				slog.ErrorContext(r.Context(), "failed to sign session cookie", "error", err)
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    value,
				Path:     "/",
				MaxAge:   int(m.ttl.Seconds()),
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionIDContextKey, sessionID)
		ctx = context.WithValue(ctx, sessionNewContextKey, minted)
		ctx = context.WithValue(ctx, csrfContextKey, m.keys.CSRFToken(sessionID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionIDContextKey).(string)
	return sessionID, ok && sessionID != ""
}

// SessionIsNew reports whether the session id was minted for this request,
// so nothing can have been stored under it yet.
func SessionIsNew(ctx context.Context) bool {
	minted, _ := ctx.Value(sessionNewContextKey).(bool)
	return minted
}

// CSRFTokenFromContext returns the token forms must echo back.
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfContextKey).(string)
	return token
}

// CSRF rejects unsafe requests whose form field or header does not carry the
// session's token. It must run after the session middleware.
func CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		expected := CSRFTokenFromContext(r.Context())
		got := r.Header.Get(CSRFHeaderName)
		if got == "" {
			if err := parseForm(r); err != nil {
				if isBodyTooLarge(err) {
					http.Error(w, "the submitted form is larger than the upload limit", http.StatusRequestEntityTooLarge)
					return
				}
				slog.WarnContext(r.Context(), "failed to parse form", "path", r.URL.Path, "error", err)
			}
			got = r.PostFormValue(CSRFFieldName)
		}

		if expected == "" || !hmac.Equal([]byte(got), []byte(expected)) {
			slog.WarnContext(r.Context(), "csrf token mismatch", "path", r.URL.Path)
			http.Error(w, "invalid or missing form token, reload the page and try again", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// parseForm reads url-encoded and multipart bodies alike; handlers later see
// the parsed form.
func parseForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(formMemory)
	}
	return r.ParseForm()
}

func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}
