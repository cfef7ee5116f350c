// Package views holds the HTML pages as templ components.
package views

//go:generate templ generate

import (
	"strconv"
	"strings"
	"time"

	"estate-web/internal/model"
	"estate-web/internal/service"
)

// PageContext is what the layout needs on every page.
type PageContext struct {
	Title  string
	User   *model.SessionUser
	Nav    []service.NavLink
	CSRF   string
	Error  string
	Notice string
}

type ListingsData struct {
	View    service.ListingsView
	PrevURL string
	NextURL string
}

type ListingData struct {
	Listing   model.Listing
	CanManage bool
}

type ListingFormData struct {
	Form      service.ListingForm
	Action    string
	Editing   bool
	ListingID int64
	OwnerID   int64
	Images    []model.ListingImage
}

type UploadData struct {
	Listing model.Listing
	Report  service.UploadReport
	Created bool
}

// HiddenField is an extra input carried by a confirmation form.
type HiddenField struct {
	Name  string
	Value string
}

type ConfirmData struct {
	Heading string
	Message string
	Action  string
	Cancel  string
	Hidden  []HiddenField
}

type CredentialsForm struct {
	Email    string
	FullName string
	Next     string
}

func listingURL(id int64) string {
	return "/listings/" + strconv.FormatInt(id, 10)
}

func userURL(id int64) string {
	return "/admin/users/" + strconv.FormatInt(id, 10)
}

func userLabel(u *model.SessionUser) string {
	if u.Role == "" {
		return u.DisplayName()
	}
	return u.DisplayName() + " (" + u.Role + ")"
}

func plural(n int, one string, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func uploadDetails(u service.ImageUpload) string {
	if u.Resized {
		return strings.TrimSpace(u.Error + " resized before upload")
	}
	return u.Error
}

func money(amount float64, currency string) string {
	whole := strconv.FormatFloat(amount, 'f', 0, 64)
	if amount != float64(int64(amount)) {
		whole = strconv.FormatFloat(amount, 'f', 2, 64)
	}
	return groupThousands(whole) + " " + currency
}

func groupThousands(number string) string {
	intPart, frac, hasFrac := strings.Cut(number, ".")
	negative := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var out strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}

	result := out.String()
	if negative {
		result = "-" + result
	}
	if hasFrac {
		result += "." + frac
	}
	return result
}

func area(sqm float64) string {
	return strconv.FormatFloat(sqm, 'f', -1, 64) + " m²"
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2 Jan 2006")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
