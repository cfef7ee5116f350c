package service

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"estate-web/internal/model"
)

type listingsFunc func(ctx context.Context, query url.Values) (model.ListingPage, error)

func (f listingsFunc) ListListings(ctx context.Context, query url.Values) (model.ListingPage, error) {
	return f(ctx, query)
}

func pageOf(total int) listingsFunc {
	return func(context.Context, url.Values) (model.ListingPage, error) {
		return model.ListingPage{Total: total, Page: 1, PageSize: 12}, nil
	}
}

func TestListingsBrowserApply(t *testing.T) {
	t.Parallel()

	b := NewListingsBrowser(12)
	_, err := b.Fetch(context.Background(), pageOf(25))
	require.NoError(t, err)

	t.Run("page navigation is clamped", func(t *testing.T) {
		next := b.View().Filter
		next.Page = 3
		require.Equal(t, 3, b.Apply(next).Page)

		next.Page = 4
		require.Equal(t, 3, b.Apply(next).Page)

		next.Page = 0
		require.Equal(t, 1, b.Apply(next).Page)
	})

	t.Run("every other change resets to the first page", func(t *testing.T) {
		changes := map[string]func(f *FilterState){
			"city":          func(f *FilterState) { f.City = "Almaty" },
			"property type": func(f *FilterState) { f.PropertyType = "house" },
			"listing type":  func(f *FilterState) { f.ListingType = "rent" },
			"min price":     func(f *FilterState) { f.MinPrice = "100" },
			"max area":      func(f *FilterState) { f.MaxArea = "80" },
			"rooms":         func(f *FilterState) { f.MinRooms = "2" },
			"sort field":    func(f *FilterState) { f.SortField = SortPrice },
			"sort order":    func(f *FilterState) { f.SortOrder = SortAsc },
			"page size":     func(f *FilterState) { f.PageSize = 24 },
		}

		for name, change := range changes {
			current := b.View().Filter
			current.Page = 2
			b.Apply(current)

			next := b.View().Filter
			next.Page = 2
			change(&next)
			require.Equal(t, 1, b.Apply(next).Page, name)
		}
	})

	t.Run("reset restores defaults", func(t *testing.T) {
		require.Equal(t, DefaultFilter(12), b.Reset())
	})
}

func TestListingsBrowserFetchSupersedes(t *testing.T) {
	t.Parallel()

	b := NewListingsBrowser(12)
	entered := make(chan struct{})

	slow := listingsFunc(func(ctx context.Context, _ url.Values) (model.ListingPage, error) {
		close(entered)
		<-ctx.Done()
		return model.ListingPage{}, ctx.Err()
	})
	fast := listingsFunc(func(context.Context, url.Values) (model.ListingPage, error) {
		return model.ListingPage{Items: []model.Listing{{ID: 7}}, Total: 1}, nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := b.Fetch(context.Background(), slow)
		done <- err
	}()
	<-entered

	view, err := b.Fetch(context.Background(), fast)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	require.ErrorIs(t, <-done, model.ErrSuperseded)
	require.Equal(t, int64(7), b.View().Items[0].ID)
	require.Empty(t, b.View().Error)
}

func TestListingsBrowserFetchError(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(t)
	backend.server.Close()

	b := NewListingsBrowser(12)
	_, err := b.Fetch(context.Background(), backend.client())
	require.Error(t, err)
	require.Equal(t, "unable to reach the listings service", b.View().Error)
	require.False(t, b.View().Loaded)
}

func TestListingsBrowserRemove(t *testing.T) {
	t.Parallel()

	t.Run("successful delete patches the page without refetching", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.seedListings(10, 1)
		_, s := signedIn(t, backend, validEmail)

		b := s.Listings()
		view, err := b.Fetch(context.Background(), backend.client())
		require.NoError(t, err)
		require.Len(t, view.Items, 10)
		require.Equal(t, 10, view.Total)

		require.NoError(t, b.Remove(context.Background(), backend.client(), s.Snapshot(), 4, true))

		view = b.View()
		require.Equal(t, 9, view.Total)
		require.Len(t, view.Items, 9)
		for _, item := range view.Items {
			require.NotEqual(t, int64(4), item.ID)
		}
		require.Equal(t, 1, backend.count("GET", "/api/v1/listings"))
		require.Equal(t, 1, backend.count("DELETE", "/api/v1/listings/4"))
	})

	t.Run("unconfirmed delete sends nothing", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.seedListings(3, 1)
		_, s := signedIn(t, backend, validEmail)

		b := s.Listings()
		_, err := b.Fetch(context.Background(), backend.client())
		require.NoError(t, err)

		err = b.Remove(context.Background(), backend.client(), s.Snapshot(), 2, false)
		require.ErrorIs(t, err, model.ErrConfirmationRequired)
		require.Len(t, b.View().Items, 3)
		require.Zero(t, backend.count("DELETE", "/api/v1/listings/2"))
	})

	t.Run("failed delete leaves data untouched", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.seedListings(3, 1)
		_, s := signedIn(t, backend, validEmail)

		b := s.Listings()
		_, err := b.Fetch(context.Background(), backend.client())
		require.NoError(t, err)

		backend.mu.Lock()
		backend.listings = backend.listings[:0]
		backend.mu.Unlock()

		err = b.Remove(context.Background(), backend.client(), s.Snapshot(), 2, true)
		require.Error(t, err)
		view := b.View()
		require.Len(t, view.Items, 3)
		require.Equal(t, 3, view.Total)
		require.Equal(t, "Listing not found", view.Error)
	})

	t.Run("signed out users cannot delete", func(t *testing.T) {
		b := NewListingsBrowser(12)
		err := b.Remove(context.Background(), nil, SessionView{}, 1, true)
		require.ErrorIs(t, err, model.ErrNotAuthenticated)
	})

	t.Run("other users' listings are not deletable", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.seedListings(2, 99)
		_, s := signedIn(t, backend, validEmail)

		b := s.Listings()
		_, err := b.Fetch(context.Background(), backend.client())
		require.NoError(t, err)

		err = b.Remove(context.Background(), backend.client(), s.Snapshot(), 1, true)
		require.Error(t, err)
		require.Zero(t, backend.count("DELETE", "/api/v1/listings/1"))
	})
}
