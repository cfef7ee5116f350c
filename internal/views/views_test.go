package views

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estate-web/internal/model"
	"estate-web/internal/service"
)

func sampleListing() model.Listing {
	return model.Listing{
		ID:           7,
		Title:        "Sunny <flat>",
		Description:  "Near the park",
		PropertyType: "apartment",
		ListingType:  "rent",
		Price:        1250000,
		Currency:     "KZT",
		City:         "Almaty",
		AreaSqm:      54.5,
		Rooms:        2,
		OwnerUserID:  1,
		CreatedAt:    time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
		Images: []model.ListingImage{
			{ID: 1, URL: "/media/a.jpg"},
			{ID: 2, URL: "/media/b.jpg"},
		},
	}
}

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestPagesRender(t *testing.T) {
	t.Parallel()

	admin := &model.SessionUser{ID: 1, Email: "a@b.com", Role: model.RoleAdmin}
	pageFor := func(title string) PageContext {
		return PageContext{Title: title, User: admin, Nav: service.NavLinks(admin), CSRF: "tok-123", Error: "oops"}
	}

	browser := service.NewListingsBrowser(12)
	listingsView := browser.View()
	listingsView.Items = []model.Listing{sampleListing()}
	listingsView.Total = 30
	listingsView.TotalPages = 3
	listingsView.Loaded = true

	report := service.UploadReport{ListingID: 7, Uploads: []service.ImageUpload{
		{Name: "a.png", Status: service.UploadComplete, Resized: true},
		{Name: "b.png", Status: service.UploadError, Error: "Unsupported image"},
	}}
	users := service.UserDirectoryView{
		Items:     []model.UserRecord{{ID: 1, Email: "a@b.com", Role: model.RoleUser}, {ID: 2, Email: "b@b.com", Role: model.RoleAdmin}},
		Loaded:    true,
		EditingID: 2,
	}

	pages := map[string]struct {
		component templ.Component
		contains  []string
	}{
		"listings": {
			ListingsPage(pageFor("listings"), ListingsData{View: listingsView, NextURL: "/listings?page=2"}),
			[]string{"30 listings", "page 1 of 3", `<article class="card">`, `href="/listings/7/edit"`, "Next →"},
		},
		"listing_detail": {
			ListingDetailPage(pageFor("listing_detail"), ListingData{Listing: sampleListing(), CanManage: true}),
			[]string{`src="/media/a.jpg"`, "Listed 4 Mar 2026", `href="/listings/7/edit/delete"`},
		},
		"listing_form": {
			ListingFormPage(pageFor("listing_form"), ListingFormData{
				Form:      service.FormFromListing(sampleListing()),
				Action:    "/listings/7/edit",
				Editing:   true,
				ListingID: 7,
				OwnerID:   1,
				Images:    sampleListing().Images,
			}),
			[]string{`name="owner_user_id" value="1"`, `<option value="apartment" selected>Apartment</option>`, "Save changes", `action="/listings/7/images"`},
		},
		"upload_report": {
			UploadReportPage(pageFor("upload_report"), UploadData{Listing: sampleListing(), Report: report, Created: true}),
			[]string{"Listing created", `data-status="error"`, "resized before upload", "Unsupported image"},
		},
		"confirm": {
			ConfirmPage(pageFor("confirm"), ConfirmData{Heading: "Delete", Message: "Sure?", Action: "/x", Cancel: "/y", Hidden: []HiddenField{{Name: "owner_user_id", Value: "1"}}}),
			[]string{`name="confirm" value="yes"`, `name="owner_user_id" value="1"`, `href="/y"`},
		},
		"login": {
			LoginPage(pageFor("login"), CredentialsForm{Email: "a@b.com", Next: "/listings"}),
			[]string{`name="next" value="/listings"`, `value="a@b.com"`},
		},
		"register": {
			RegisterPage(pageFor("register"), CredentialsForm{Email: "a@b.com", FullName: "Ann"}),
			[]string{`name="full_name" value="Ann"`},
		},
		"admin_users": {
			AdminUsersPage(pageFor("admin_users"), users),
			[]string{`action="/admin/users/2"`, `<option value="admin" selected>admin</option>`, `href="/admin/users?edit=1"`},
		},
		"restricted": {RestrictedPage(pageFor("restricted")), []string{"Access restricted"}},
		"error":      {ErrorPage(pageFor("error")), []string{"Back to listings"}},
	}

	for name, tc := range pages {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			body := renderString(t, tc.component)
			assert.Contains(t, body, "<title>"+name+" · Estate</title>")
			assert.Contains(t, body, "Sign out")
			assert.Contains(t, body, "a@b.com (admin)")
			assert.Contains(t, body, `<p class="error" role="alert">oops</p>`)
			assert.Contains(t, body, `name="csrf_token" value="tok-123"`)
			for _, want := range tc.contains {
				assert.Contains(t, body, want)
			}
		})
	}
}

func TestListingDetailEscapesContent(t *testing.T) {
	t.Parallel()

	body := renderString(t, ListingDetailPage(PageContext{Nav: service.NavLinks(nil)}, ListingData{Listing: sampleListing()}))

	assert.Contains(t, body, "Sunny &lt;flat&gt;")
	assert.NotContains(t, body, "Sunny <flat>")
	assert.Contains(t, body, "1,250,000 KZT")
	assert.Contains(t, body, "54.5 m²")
	assert.Contains(t, body, "4 Mar 2026")
	assert.NotContains(t, body, "/listings/7/edit")
	assert.Contains(t, body, ">Sign in<")
}

func TestUnsafeURLsAreNeutralised(t *testing.T) {
	t.Parallel()

	body := renderString(t, ConfirmPage(PageContext{}, ConfirmData{Action: "javascript:alert(1)", Cancel: "/listings"}))

	assert.NotContains(t, body, "javascript:")
	assert.Contains(t, body, `href="/listings"`)
}

func TestEmptyStates(t *testing.T) {
	t.Parallel()

	t.Run("listings", func(t *testing.T) {
		view := service.NewListingsBrowser(12).View()
		assert.NotContains(t, renderString(t, ListingsPage(PageContext{}, ListingsData{View: view})), "No listings match")

		view.Loaded = true
		body := renderString(t, ListingsPage(PageContext{}, ListingsData{View: view}))
		assert.Contains(t, body, "No listings match these filters.")
		assert.Contains(t, body, "0 listings")
		assert.NotContains(t, body, "← Previous")
	})

	t.Run("users", func(t *testing.T) {
		assert.NotContains(t, renderString(t, AdminUsersPage(PageContext{}, service.UserDirectoryView{})), "No users.")
		assert.Contains(t, renderString(t, AdminUsersPage(PageContext{}, service.UserDirectoryView{Loaded: true})), "No users.")
	})
}

func TestRenderStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := ErrorPage(PageContext{}).Render(ctx, &buf)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, buf.String())
}

func TestMoney(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0 USD", money(0, "USD"))
	assert.Equal(t, "999 USD", money(999, "USD"))
	assert.Equal(t, "1,000 USD", money(1000, "USD"))
	assert.Equal(t, "12,345,678 KZT", money(12345678, "KZT"))
	assert.Equal(t, "1,234.50 EUR", money(1234.5, "EUR"))
}

func TestTitleCase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", titleCase(""))
	assert.Equal(t, "House", titleCase("house"))
}

func TestUserLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ann (user)", userLabel(&model.SessionUser{FullName: "Ann", Role: model.RoleUser}))
	assert.Equal(t, "a@b.com", userLabel(&model.SessionUser{Email: "a@b.com"}))
}
