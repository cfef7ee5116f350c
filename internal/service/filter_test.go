package service

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTotalPages(t *testing.T) {
	t.Parallel()

	require.Equal(t, 3, TotalPages(25, 12))
	require.Equal(t, 2, TotalPages(24, 12))
	require.Equal(t, 1, TotalPages(0, 12))
	require.Equal(t, 1, TotalPages(5, 0))
}

func TestClampPage(t *testing.T) {
	t.Parallel()

	pages := TotalPages(25, 12)
	for page := -2; page <= 6; page++ {
		got := ClampPage(page, pages)
		require.GreaterOrEqual(t, got, 1)
		require.LessOrEqual(t, got, pages)
	}
	require.Equal(t, 3, ClampPage(4, pages))
	require.Equal(t, 1, ClampPage(0, pages))
}

func TestBackendQuery(t *testing.T) {
	t.Parallel()

	t.Run("omits blank and non-numeric range values", func(t *testing.T) {
		f := DefaultFilter(12)
		f.MinPrice = ""
		f.MaxPrice = "abc"
		f.MinArea = "NaN"
		f.MaxArea = "Inf"
		f.MinRooms = " 2 "
		f.City = "  Almaty "

		q := f.BackendQuery()
		require.False(t, q.Has("min_price"))
		require.False(t, q.Has("max_price"))
		require.False(t, q.Has("min_area"))
		require.False(t, q.Has("max_area"))
		require.Equal(t, "2", q.Get("min_rooms"))
		require.Equal(t, "Almaty", q.Get("city"))
		require.Equal(t, "created_at", q.Get("sort_by"))
		require.Equal(t, "desc", q.Get("sort_order"))
		require.Equal(t, "1", q.Get("page"))
		require.Equal(t, "12", q.Get("page_size"))
	})

	t.Run("keeps fractional values", func(t *testing.T) {
		f := DefaultFilter(12)
		f.MaxPrice = "1500.5"
		require.Equal(t, "1500.5", f.BackendQuery().Get("max_price"))
	})
}

func TestFilterFromQuery(t *testing.T) {
	t.Parallel()

	values := url.Values{
		"property_type": {"HOUSE"},
		"listing_type":  {"lease"},
		"sort_by":       {"price"},
		"sort_order":    {"sideways"},
		"page":          {"3"},
		"page_size":     {"500"},
		"min_price":     {"abc"},
	}

	f := FilterFromQuery(values, 12)
	require.Equal(t, "house", f.PropertyType)
	require.Empty(t, f.ListingType)
	require.Equal(t, SortPrice, f.SortField)
	require.Equal(t, SortDesc, f.SortOrder)
	require.Equal(t, 3, f.Page)
	require.Equal(t, 12, f.PageSize)
	require.Equal(t, "abc", f.MinPrice)

	round := FilterFromQuery(f.Values(), 12)
	require.Equal(t, f, round)
}

func TestPageURL(t *testing.T) {
	t.Parallel()

	f := DefaultFilter(12)
	f.City = "Astana"
	u, err := url.Parse(f.PageURL(2))
	require.NoError(t, err)
	require.Equal(t, "/listings", u.Path)
	require.Equal(t, "2", u.Query().Get("page"))
	require.Equal(t, "Astana", u.Query().Get("city"))
}
