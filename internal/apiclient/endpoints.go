package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"estate-web/internal/model"
)

func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (model.UserRecord, error) {
	var user model.UserRecord
	err := c.doJSON(ctx, http.MethodPost, "/auth/register", "", req, &user)
	return user, err
}

func (c *Client) Login(ctx context.Context, email string, password string) (string, error) {
	var tokens model.TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", model.LoginRequest{Email: email, Password: password}, &tokens); err != nil {
		return "", err
	}
	return tokens.AccessToken, nil
}

func (c *Client) Me(ctx context.Context, token string) (model.SessionUser, error) {
	var user model.SessionUser
	err := c.doJSON(ctx, http.MethodGet, "/auth/me", token, nil, &user)
	return user, err
}

func (c *Client) ListListings(ctx context.Context, query url.Values) (model.ListingPage, error) {
	var page model.ListingPage
	err := c.do(ctx, http.MethodGet, c.endpoint("/listings", query), "", nil, "", &page)
	return page, err
}

func (c *Client) GetListing(ctx context.Context, id int64) (model.Listing, error) {
	var listing model.Listing
	err := c.doJSON(ctx, http.MethodGet, listingPath(id), "", nil, &listing)
	return listing, err
}

func (c *Client) CreateListing(ctx context.Context, token string, input model.ListingInput) (model.Listing, error) {
	var listing model.Listing
	err := c.doJSON(ctx, http.MethodPost, "/listings", token, input, &listing)
	return listing, err
}

func (c *Client) UpdateListing(ctx context.Context, token string, id int64, input model.ListingInput) (model.Listing, error) {
	var listing model.Listing
	err := c.doJSON(ctx, http.MethodPatch, listingPath(id), token, input, &listing)
	return listing, err
}

func (c *Client) DeleteListing(ctx context.Context, token string, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, listingPath(id), token, nil, nil)
}

// UploadListingImage sends one file as multipart field "file".
func (c *Client) UploadListingImage(ctx context.Context, token string, listingID int64, filename string, contentType string, content io.Reader) (model.ListingImage, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return model.ListingImage{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return model.ListingImage{}, fmt.Errorf("copy image content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return model.ListingImage{}, fmt.Errorf("close multipart writer: %w", err)
	}

	var image model.ListingImage
	err = c.do(ctx, http.MethodPost, c.endpoint(listingPath(listingID)+"/images", nil), token, &buf, writer.FormDataContentType(), &image)
	return image, err
}

func (c *Client) ListUsers(ctx context.Context, token string) ([]model.UserRecord, error) {
	users := make([]model.UserRecord, 0)
	err := c.doJSON(ctx, http.MethodGet, "/admin/users", token, nil, &users)
	return users, err
}

func (c *Client) UpdateUser(ctx context.Context, token string, id int64, update model.UserUpdate) (model.UserRecord, error) {
	var user model.UserRecord
	err := c.doJSON(ctx, http.MethodPatch, userPath(id), token, update, &user)
	return user, err
}

func (c *Client) DeleteUser(ctx context.Context, token string, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, userPath(id), token, nil, nil)
}

func listingPath(id int64) string {
	return "/listings/" + strconv.FormatInt(id, 10)
}

func userPath(id int64) string {
	return "/admin/users/" + strconv.FormatInt(id, 10)
}
