package model

import "time"

var (
	PropertyTypes = []string{"apartment", "house", "land", "office"}
	ListingTypes  = []string{"sale", "rent"}
)

type Listing struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	PropertyType string         `json:"property_type"`
	ListingType  string         `json:"listing_type"`
	Price        float64        `json:"price"`
	Currency     string         `json:"currency"`
	City         string         `json:"city"`
	AreaSqm      float64        `json:"area_sqm"`
	Rooms        int            `json:"rooms"`
	OwnerUserID  int64          `json:"owner_user_id"`
	CreatedAt    time.Time      `json:"created_at"`
	Images       []ListingImage `json:"images"`
}

// Cover returns the first uploaded image, if any.
func (l Listing) Cover() *ListingImage {
	if len(l.Images) == 0 {
		return nil
	}
	return &l.Images[0]
}

type ListingImage struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// ListingInput is the full replacement payload for create and edit.
type ListingInput struct {
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	PropertyType string  `json:"property_type"`
	ListingType  string  `json:"listing_type"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	City         string  `json:"city"`
	AreaSqm      float64 `json:"area_sqm"`
	Rooms        int     `json:"rooms"`
}

type ListingPage struct {
	Items    []Listing `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}
