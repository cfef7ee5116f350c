package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"estate-web/internal/model"
	"estate-web/pkg/apierror"
)

func TestExtractErrorMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"detail string", `{"detail":"Incorrect email or password"}`, 400, "Incorrect email or password"},
		{"detail list", `{"detail":[{"msg":"field required"},{"msg":"value is not a valid email"}]}`, 422, "field required, value is not a valid email"},
		{"message string", `{"message":"Listing not found"}`, 404, "Listing not found"},
		{"detail wins over message", `{"detail":"first","message":"second"}`, 400, "first"},
		{"unknown json shape", `{"error":"nope"}`, 500, "request failed with status 500"},
		{"plain text", "Bad Gateway\n", 502, "Bad Gateway"},
		{"empty body", "", 503, "request failed with status 503"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ExtractErrorMessage([]byte(tc.body), tc.status))
		})
	}
}

func TestClientSurfacesBackendErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Email already registered"}`))
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, time.Second)
	_, err := client.Register(context.Background(), model.RegisterRequest{Email: "a@b.com", Password: "secret123"})
	require.Error(t, err)

	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	require.Equal(t, apierror.CodeHTTP, apiErr.Code)
	require.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
	require.Equal(t, "Email already registered", apiErr.Message)
}

func TestClientLabelsRejectedTokens(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	t.Cleanup(server.Close)

	_, err := New(server.URL, time.Second).Me(context.Background(), "stale")
	require.True(t, apierror.HasCode(err, apierror.CodeUnauthorized))
	require.Equal(t, "Could not validate credentials", apierror.UserMessage(err))
}

func TestClientNetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := New(baseURL, time.Second)
	_, err := client.GetListing(context.Background(), 1)
	require.True(t, apierror.HasCode(err, apierror.CodeNetwork))
}

func TestClientCancelledContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := New(server.URL, time.Second)
	_, err := client.ListListings(ctx, url.Values{"page": {"1"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestClientSendsBearerAndQuery(t *testing.T) {
	t.Parallel()

	var gotAuth, gotQuery, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(model.ListingPage{Total: 0, Page: 1, PageSize: 12})
	}))
	t.Cleanup(server.Close)

	client := New(server.URL+"/", time.Second)
	page, err := client.ListListings(context.Background(), url.Values{"city": {"Almaty"}, "page": {"1"}})
	require.NoError(t, err)
	require.Equal(t, 12, page.PageSize)
	require.Equal(t, "/api/v1/listings", gotPath)
	require.Equal(t, "city=Almaty&page=1", gotQuery)
	require.Empty(t, gotAuth)

	_, err = client.Me(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "Bearer tok", gotAuth)
}

func TestUploadListingImage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/listings/7/images", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "kitchen.png", header.Filename)
		require.Equal(t, "pixels", string(content))
		require.Equal(t, "image/png", header.Header.Get("Content-Type"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":3,"url":"/media/3.png","created_at":"2026-01-02T03:04:05Z"}`))
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, time.Second)
	image, err := client.UploadListingImage(context.Background(), "tok", 7, "kitchen.png", "image/png", strings.NewReader("pixels"))
	require.NoError(t, err)
	require.Equal(t, int64(3), image.ID)
	require.Equal(t, "/media/3.png", image.URL)
}

func TestDeleteListingAcceptsEmptyBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	require.NoError(t, New(server.URL, time.Second).DeleteListing(context.Background(), "tok", 9))
}
