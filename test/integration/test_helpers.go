//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"estate-web/internal/apiclient"
	"estate-web/internal/config"
	"estate-web/internal/event"
	"estate-web/internal/handler"
	"estate-web/internal/middleware"
	"estate-web/internal/model"
	"estate-web/internal/repository"
	"estate-web/internal/router"
	"estate-web/internal/service"
	"estate-web/internal/util"
	"estate-web/internal/websocket"
)

const (
	testPassword = "secret123"
	userToken    = "tok-user"
	adminToken   = "tok-admin"
)

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

type testEnv struct {
	server  *httptest.Server
	backend *fakeBackend
	client  *http.Client
	token   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend := newFakeBackend(t)
	api := apiclient.New(backend.server.URL, 5*time.Second)

	cfg := &config.Config{
		ServerWriteTimeout: 30 * time.Second,
		RequestTimeout:     10 * time.Second,
		SessionTTL:         time.Hour,
		CORSOrigins:        []string{"*"},
		MaxUploadSize:      4 << 20,
		MaxImageDimension:  1024,
		MaxImagePixels:     16_000_000,
		DefaultPageSize:    12,
	}

	keys, err := middleware.DeriveSessionKeys("integration-test-secret")
	require.NoError(t, err)

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	go hub.Run()
	t.Cleanup(hub.Stop)

	authService := service.NewAuthService(api, repository.NewMemorySessionStore(cfg.SessionTTL), cfg.DefaultPageSize)
	listingService := service.NewListingService(api, bus, util.ImageLimits{
		MaxBytes:     cfg.MaxUploadSize,
		MaxDimension: cfg.MaxImageDimension,
		MaxPixels:    cfg.MaxImagePixels,
	})
	adminService := service.NewAdminService(api)

	base := handler.NewBase(authService)

	appRouter := router.New(cfg, middleware.NewSessionMiddleware(keys, cfg.SessionTTL, false), router.Handlers{
		Auth:    handler.NewAuthHandler(base, authService),
		Listing: handler.NewListingHandler(base, listingService, api, cfg.DefaultPageSize),
		Admin:   handler.NewAdminHandler(base, adminService),
		WS:      handler.NewWSHandler(hub, middleware.OriginAllowed(cfg.CORSOrigins)),
		Health:  handler.NewHealthHandler(map[string]handler.HealthCheck{}),
	})

	server := httptest.NewServer(appRouter)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server:  server,
		backend: backend,
		client:  &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	require.NoError(t, err)
	return e.do(t, req)
}

// post submits a form with the session's csrf token filled in.
func (e *testEnv) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()

	if form == nil {
		form = url.Values{}
	}
	if form.Get("csrf_token") == "" {
		form.Set("csrf_token", e.csrf(t))
	}

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req)
}

// postFiles submits a multipart form with the given files under "images".
func (e *testEnv) postFiles(t *testing.T, path string, form url.Values, files map[string][]byte) (*http.Response, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("csrf_token", e.csrf(t)))
	for key, values := range form {
		for _, value := range values {
			require.NoError(t, writer.WriteField(key, value))
		}
	}
	for name, data := range files {
		part, err := writer.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.do(t, req)
}

// csrf returns the form token of the client's session. The session cookie
// never changes for a jar, so the token is read from a page only once.
func (e *testEnv) csrf(t *testing.T) string {
	t.Helper()

	if e.token != "" {
		return e.token
	}
	_, body := e.get(t, "/login")
	match := csrfPattern.FindStringSubmatch(body)
	require.Len(t, match, 2, "page has no csrf token")
	e.token = match[1]
	return e.token
}

func (e *testEnv) signIn(t *testing.T, email string) {
	t.Helper()

	resp, body := e.post(t, "/login", url.Values{"email": {email}, "password": {testPassword}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.Equal(t, "/listings", resp.Request.URL.Path)
}

// fakeBackend is an in-process listings API with call counting.
type fakeBackend struct {
	mu          sync.Mutex
	listings    []model.Listing
	users       []model.UserRecord
	calls       map[string]int
	failUploads map[string]string
	nextID      int64
	server      *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	b := &fakeBackend{
		calls:       map[string]int{},
		failUploads: map[string]string{},
		nextID:      100,
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			b.mu.Lock()
			b.calls[req.Method+" "+req.URL.Path]++
			b.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", b.login)
		r.Get("/auth/me", b.me)
		r.Get("/listings", b.listListings)
		r.Post("/listings", b.createListing)
		r.Get("/listings/{id}", b.getListing)
		r.Delete("/listings/{id}", b.deleteListing)
		r.Post("/listings/{id}/images", b.uploadImage)
		r.Get("/admin/users", b.listUsers)
		r.Patch("/admin/users/{id}", b.updateUser)
	})

	b.server = httptest.NewServer(r)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) count(method string, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+path]
}

func (b *fakeBackend) seedListings(n int, ownerID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 1; i <= n; i++ {
		b.listings = append(b.listings, model.Listing{
			ID:           int64(i),
			Title:        fmt.Sprintf("Listing %d", i),
			PropertyType: "apartment",
			ListingType:  "sale",
			Price:        float64(100000 + i),
			Currency:     "USD",
			City:         "Almaty",
			AreaSqm:      50,
			Rooms:        2,
			OwnerUserID:  ownerID,
		})
	}
}

func (b *fakeBackend) seedUsers(users ...model.UserRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users = append(b.users, users...)
}

func (b *fakeBackend) failUpload(name string, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failUploads[name] = reason
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	switch {
	case req.Password != testPassword:
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
	case req.Email == "root@b.com":
		writeJSON(w, http.StatusOK, model.TokenResponse{AccessToken: adminToken, TokenType: "bearer"})
	default:
		writeJSON(w, http.StatusOK, model.TokenResponse{AccessToken: userToken, TokenType: "bearer"})
	}
}

func (b *fakeBackend) me(w http.ResponseWriter, r *http.Request) {
	switch bearer(r) {
	case userToken:
		writeJSON(w, http.StatusOK, model.SessionUser{ID: 1, Email: "a@b.com", FullName: "Ann", Role: model.RoleUser})
	case adminToken:
		writeJSON(w, http.StatusOK, model.SessionUser{ID: 2, Email: "root@b.com", Role: model.RoleAdmin})
	default:
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
	}
}

func (b *fakeBackend) listListings(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := make([]model.Listing, len(b.listings))
	copy(items, b.listings)
	writeJSON(w, http.StatusOK, model.ListingPage{Items: items, Total: len(items), Page: 1, PageSize: 12})
}

func (b *fakeBackend) getListing(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := pathID(r)
	for _, l := range b.listings {
		if l.ID == id {
			writeJSON(w, http.StatusOK, l)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Listing not found")
}

func (b *fakeBackend) createListing(w http.ResponseWriter, r *http.Request) {
	if bearer(r) == "" {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	var input model.ListingInput
	_ = json.NewDecoder(r.Body).Decode(&input)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	listing := model.Listing{
		ID:           b.nextID,
		Title:        input.Title,
		PropertyType: input.PropertyType,
		ListingType:  input.ListingType,
		Price:        input.Price,
		Currency:     input.Currency,
		City:         input.City,
		AreaSqm:      input.AreaSqm,
		Rooms:        input.Rooms,
		OwnerUserID:  1,
	}
	b.listings = append(b.listings, listing)
	writeJSON(w, http.StatusCreated, listing)
}

func (b *fakeBackend) deleteListing(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := pathID(r)
	for i, l := range b.listings {
		if l.ID == id {
			b.listings = append(b.listings[:i], b.listings[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Listing not found")
}

func (b *fakeBackend) uploadImage(w http.ResponseWriter, r *http.Request) {
	_, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "file is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if reason, ok := b.failUploads[header.Filename]; ok {
		writeDetail(w, http.StatusUnprocessableEntity, reason)
		return
	}

	id := pathID(r)
	image := model.ListingImage{ID: b.nextID, URL: "/media/" + header.Filename}
	for i, l := range b.listings {
		if l.ID == id {
			b.listings[i].Images = append(b.listings[i].Images, image)
		}
	}
	writeJSON(w, http.StatusCreated, image)
}

func (b *fakeBackend) listUsers(w http.ResponseWriter, r *http.Request) {
	if bearer(r) != adminToken {
		writeDetail(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	users := make([]model.UserRecord, len(b.users))
	copy(users, b.users)
	writeJSON(w, http.StatusOK, users)
}

func (b *fakeBackend) updateUser(w http.ResponseWriter, r *http.Request) {
	var update model.UserUpdate
	_ = json.NewDecoder(r.Body).Decode(&update)

	b.mu.Lock()
	defer b.mu.Unlock()
	id := pathID(r)
	for i, u := range b.users {
		if u.ID != id {
			continue
		}
		u.Role = update.Role
		if update.FullName != nil {
			u.FullName = *update.FullName
		}
		b.users[i] = u
		writeJSON(w, http.StatusOK, u)
		return
	}
	writeDetail(w, http.StatusNotFound, "User not found")
}
