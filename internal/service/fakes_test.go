package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"estate-web/internal/apiclient"
	"estate-web/internal/event"
	"estate-web/internal/model"
	"estate-web/internal/util"
)

const (
	validEmail    = "a@b.com"
	validPassword = "secret123"
	validToken    = "tok-123"
	adminToken    = "tok-admin"
)

type mockTokenStore struct {
	mock.Mock
}

func (m *mockTokenStore) Load(ctx context.Context, sessionID string) (string, error) {
	args := m.Called(ctx, sessionID)
	return args.String(0), args.Error(1)
}

func (m *mockTokenStore) Save(ctx context.Context, sessionID string, token string) error {
	args := m.Called(ctx, sessionID, token)
	return args.Error(0)
}

func (m *mockTokenStore) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// fakeBackend is an in-process listings API with call counting.
type fakeBackend struct {
	mu          sync.Mutex
	listings    []model.Listing
	users       []model.UserRecord
	calls       map[string]int
	failUploads map[string]string
	uploaded    []string
	server      *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	b := &fakeBackend{
		calls:       map[string]int{},
		failUploads: map[string]string{},
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
		r.Post("/auth/register", b.register)
		r.Get("/auth/me", b.me)
		r.Get("/listings", b.listListings)
		r.Post("/listings", b.createListing)
		r.Get("/listings/{id}", b.getListing)
		r.Patch("/listings/{id}", b.updateListing)
		r.Delete("/listings/{id}", b.deleteListing)
		r.Post("/listings/{id}/images", b.uploadImage)
		r.Get("/admin/users", b.listUsers)
		r.Patch("/admin/users/{id}", b.updateUser)
		r.Delete("/admin/users/{id}", b.deleteUser)
	})

	b.server = httptest.NewServer(r)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) client() *apiclient.Client {
	return apiclient.New(b.server.URL, 5*time.Second)
}

func (b *fakeBackend) count(method string, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+path]
}

func (b *fakeBackend) failUpload(name string, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failUploads[name] = reason
}

func (b *fakeBackend) uploadedFiles() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.uploaded...)
}

func (b *fakeBackend) seedUsers(users ...model.UserRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users = append(b.users, users...)
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

func idParam(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	switch {
	case req.Password != validPassword:
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
	case req.Email == "root@b.com":
		writeJSON(w, http.StatusOK, model.TokenResponse{AccessToken: adminToken, TokenType: "bearer"})
	default:
		writeJSON(w, http.StatusOK, model.TokenResponse{AccessToken: validToken, TokenType: "bearer"})
	}
}

func (b *fakeBackend) register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Email == validEmail {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	writeJSON(w, http.StatusCreated, model.UserRecord{ID: 9, Email: req.Email, Role: model.RoleUser})
}

func (b *fakeBackend) me(w http.ResponseWriter, r *http.Request) {
	switch bearer(r) {
	case validToken:
		writeJSON(w, http.StatusOK, model.SessionUser{ID: 1, Email: validEmail, FullName: "Ann", Role: model.RoleUser})
	case adminToken:
		writeJSON(w, http.StatusOK, model.SessionUser{ID: 2, Email: "root@b.com", Role: model.RoleAdmin})
	default:
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
	}
}

func (b *fakeBackend) listListings(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := make([]model.Listing, len(b.listings))
	copy(items, b.listings)
	writeJSON(w, http.StatusOK, model.ListingPage{Items: items, Total: len(items), Page: 1, PageSize: 12})
}

func (b *fakeBackend) getListing(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := idParam(r)
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
	listing := model.Listing{
		ID:           42,
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

func (b *fakeBackend) updateListing(w http.ResponseWriter, r *http.Request) {
	var input model.ListingInput
	_ = json.NewDecoder(r.Body).Decode(&input)

	b.mu.Lock()
	defer b.mu.Unlock()
	id := idParam(r)
	for i, l := range b.listings {
		if l.ID != id {
			continue
		}
		l.Title = input.Title
		l.City = input.City
		l.Price = input.Price
		l.Currency = input.Currency
		b.listings[i] = l
		writeJSON(w, http.StatusOK, l)
		return
	}
	writeDetail(w, http.StatusNotFound, "Listing not found")
}

func (b *fakeBackend) deleteListing(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := idParam(r)
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
	b.uploaded = append(b.uploaded, header.Filename)
	writeJSON(w, http.StatusCreated, model.ListingImage{ID: int64(len(b.uploaded)), URL: "/media/" + header.Filename})
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
	id := idParam(r)
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

func (b *fakeBackend) deleteUser(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := idParam(r)
	for i, u := range b.users {
		if u.ID == id {
			b.users = append(b.users[:i], b.users[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "User not found")
}

func pngFile(t *testing.T, name string, width int, height int) UploadFile {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	data := buf.Bytes()

	return UploadFile{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// recordingBus keeps every published event.
type recordingBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (b *recordingBus) Publish(e event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) Subscribe() (<-chan event.Event, func()) {
	ch := make(chan event.Event)
	return ch, func() {}
}

func (b *recordingBus) ofType(t event.Type) []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]event.Event, 0)
	for _, e := range b.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func imageLimits(maxDimension int) util.ImageLimits {
	return util.ImageLimits{MaxBytes: 1 << 20, MaxDimension: maxDimension, MaxPixels: 4_000_000}
}

func memoryStore(t *testing.T) *mockTokenStore {
	t.Helper()
	store := &mockTokenStore{}
	store.On("Load", mock.Anything, mock.Anything).Return("", nil)
	store.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("Delete", mock.Anything, mock.Anything).Return(nil)
	return store
}

func signedIn(t *testing.T, backend *fakeBackend, email string) (*AuthService, *Session) {
	t.Helper()
	auth := NewAuthService(backend.client(), memoryStore(t), 12)
	s := auth.Session(context.Background(), "sid-"+email)
	require.NoError(t, auth.Login(context.Background(), s, email, validPassword))
	return auth, s
}
