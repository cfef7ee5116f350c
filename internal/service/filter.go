package service

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	SortCreatedAt = "created_at"
	SortPrice     = "price"
	SortArea      = "area_sqm"

	SortAsc  = "asc"
	SortDesc = "desc"

	maxPageSize = 100
)

var sortFields = []string{SortCreatedAt, SortPrice, SortArea}

// FilterState is the transient browse state. Range bounds keep the raw text
// the user typed; they are only sent when they parse as finite numbers.
type FilterState struct {
	PropertyType string
	ListingType  string
	City         string
	MinPrice     string
	MaxPrice     string
	MinArea      string
	MaxArea      string
	MinRooms     string
	MaxRooms     string
	SortField    string
	SortOrder    string
	Page         int
	PageSize     int
}

func DefaultFilter(pageSize int) FilterState {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = 12
	}
	return FilterState{
		SortField: SortCreatedAt,
		SortOrder: SortDesc,
		Page:      1,
		PageSize:  pageSize,
	}
}

// FilterFromQuery reads the browse state from a page URL.
func FilterFromQuery(values url.Values, defaultPageSize int) FilterState {
	f := DefaultFilter(defaultPageSize)

	f.PropertyType = oneOf(values.Get("property_type"), propertyTypes())
	f.ListingType = oneOf(values.Get("listing_type"), listingTypes())
	f.City = strings.TrimSpace(values.Get("city"))
	f.MinPrice = strings.TrimSpace(values.Get("min_price"))
	f.MaxPrice = strings.TrimSpace(values.Get("max_price"))
	f.MinArea = strings.TrimSpace(values.Get("min_area"))
	f.MaxArea = strings.TrimSpace(values.Get("max_area"))
	f.MinRooms = strings.TrimSpace(values.Get("min_rooms"))
	f.MaxRooms = strings.TrimSpace(values.Get("max_rooms"))

	if sort := oneOf(values.Get("sort_by"), sortFields); sort != "" {
		f.SortField = sort
	}
	if order := oneOf(values.Get("sort_order"), []string{SortAsc, SortDesc}); order != "" {
		f.SortOrder = order
	}
	if page, err := strconv.Atoi(strings.TrimSpace(values.Get("page"))); err == nil && page >= 1 {
		f.Page = page
	}
	if size, err := strconv.Atoi(strings.TrimSpace(values.Get("page_size"))); err == nil && size >= 1 && size <= maxPageSize {
		f.PageSize = size
	}

	return f
}

// SameExceptPage reports whether f and other differ at most in Page.
func (f FilterState) SameExceptPage(other FilterState) bool {
	f.Page = 0
	other.Page = 0
	return f == other
}

// BackendQuery builds the listings API query string.
func (f FilterState) BackendQuery() url.Values {
	q := url.Values{}
	setIfPresent(q, "property_type", f.PropertyType)
	setIfPresent(q, "listing_type", f.ListingType)
	setIfPresent(q, "city", f.City)
	setIfFinite(q, "min_price", f.MinPrice)
	setIfFinite(q, "max_price", f.MaxPrice)
	setIfFinite(q, "min_area", f.MinArea)
	setIfFinite(q, "max_area", f.MaxArea)
	setIfFinite(q, "min_rooms", f.MinRooms)
	setIfFinite(q, "max_rooms", f.MaxRooms)
	q.Set("sort_by", f.SortField)
	q.Set("sort_order", f.SortOrder)
	q.Set("page", strconv.Itoa(f.Page))
	q.Set("page_size", strconv.Itoa(f.PageSize))
	return q
}

// Values round-trips the state through page URLs, keeping raw user text.
func (f FilterState) Values() url.Values {
	q := url.Values{}
	setIfPresent(q, "property_type", f.PropertyType)
	setIfPresent(q, "listing_type", f.ListingType)
	setIfPresent(q, "city", f.City)
	setIfPresent(q, "min_price", f.MinPrice)
	setIfPresent(q, "max_price", f.MaxPrice)
	setIfPresent(q, "min_area", f.MinArea)
	setIfPresent(q, "max_area", f.MaxArea)
	setIfPresent(q, "min_rooms", f.MinRooms)
	setIfPresent(q, "max_rooms", f.MaxRooms)
	q.Set("sort_by", f.SortField)
	q.Set("sort_order", f.SortOrder)
	q.Set("page", strconv.Itoa(f.Page))
	q.Set("page_size", strconv.Itoa(f.PageSize))
	return q
}

// PageURL is the browse URL for the same filter on another page.
func (f FilterState) PageURL(page int) string {
	f.Page = page
	return "/listings?" + f.Values().Encode()
}

// TotalPages is max(1, ceil(total/pageSize)).
func TotalPages(total int, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampPage keeps page inside [1, totalPages].
func ClampPage(page int, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// ParseFinite parses raw as a float, rejecting blanks, NaN and infinities.
func ParseFinite(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func setIfPresent(q url.Values, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		q.Set(key, v)
	}
}

func setIfFinite(q url.Values, key string, raw string) {
	if v, ok := ParseFinite(raw); ok {
		q.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
	}
}

func oneOf(raw string, allowed []string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return ""
}
