package service

import (
	"regexp"
	"strconv"
	"strings"

	"estate-web/internal/model"
	"estate-web/pkg/apierror"
)

var currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

// ListingForm is the raw create/edit form as submitted.
type ListingForm struct {
	Title        string
	Description  string
	PropertyType string
	ListingType  string
	Price        string
	Currency     string
	City         string
	AreaSqm      string
	Rooms        string
}

func NewListingForm() ListingForm {
	return ListingForm{
		PropertyType: "apartment",
		ListingType:  "sale",
		Currency:     "USD",
		Rooms:        "1",
	}
}

func FormFromListing(l model.Listing) ListingForm {
	return ListingForm{
		Title:        l.Title,
		Description:  l.Description,
		PropertyType: l.PropertyType,
		ListingType:  l.ListingType,
		Price:        strconv.FormatFloat(l.Price, 'f', -1, 64),
		Currency:     l.Currency,
		City:         l.City,
		AreaSqm:      strconv.FormatFloat(l.AreaSqm, 'f', -1, 64),
		Rooms:        strconv.Itoa(l.Rooms),
	}
}

// Validate checks the form before it is sent. It is a convenience for the
// user, the backend validates again.
func (f ListingForm) Validate() (model.ListingInput, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return model.ListingInput{}, apierror.Validation("title", "Title is required")
	}

	city := strings.TrimSpace(f.City)
	if city == "" {
		return model.ListingInput{}, apierror.Validation("city", "City is required")
	}

	propertyType := oneOf(f.PropertyType, propertyTypes())
	if propertyType == "" {
		return model.ListingInput{}, apierror.Validation("property_type", "Property type must be one of "+strings.Join(propertyTypes(), ", "))
	}

	listingType := oneOf(f.ListingType, listingTypes())
	if listingType == "" {
		return model.ListingInput{}, apierror.Validation("listing_type", "Listing type must be sale or rent")
	}

	price, ok := ParseFinite(f.Price)
	if !ok || price < 0 {
		return model.ListingInput{}, apierror.Validation("price", "Price must be a number greater than or equal to 0")
	}

	area, ok := ParseFinite(f.AreaSqm)
	if !ok || area <= 0 {
		return model.ListingInput{}, apierror.Validation("area_sqm", "Area must be greater than 0")
	}

	rooms, err := strconv.Atoi(strings.TrimSpace(f.Rooms))
	if err != nil || rooms < 0 {
		return model.ListingInput{}, apierror.Validation("rooms", "Rooms must be a whole number of 0 or more")
	}

	currency := strings.TrimSpace(f.Currency)
	if !currencyPattern.MatchString(currency) {
		return model.ListingInput{}, apierror.Validation("currency", "Currency must be a 3-letter code")
	}

	input := model.ListingInput{
		Title:        title,
		PropertyType: propertyType,
		ListingType:  listingType,
		Price:        price,
		Currency:     strings.ToUpper(currency),
		City:         city,
		AreaSqm:      area,
		Rooms:        rooms,
	}
	if description := strings.TrimSpace(f.Description); description != "" {
		input.Description = &description
	}
	return input, nil
}

func propertyTypes() []string {
	return model.PropertyTypes
}

func listingTypes() []string {
	return model.ListingTypes
}
