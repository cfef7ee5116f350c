package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"estate-web/internal/event"
	"estate-web/internal/model"
	"estate-web/internal/util"
	"estate-web/pkg/apierror"
)

type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadComplete  UploadStatus = "complete"
	UploadError     UploadStatus = "error"
)

type listingAPI interface {
	GetListing(ctx context.Context, id int64) (model.Listing, error)
	CreateListing(ctx context.Context, token string, input model.ListingInput) (model.Listing, error)
	UpdateListing(ctx context.Context, token string, id int64, input model.ListingInput) (model.Listing, error)
	DeleteListing(ctx context.Context, token string, id int64) error
	UploadListingImage(ctx context.Context, token string, listingID int64, filename string, contentType string, content io.Reader) (model.ListingImage, error)
}

// UploadFile is one selected image. Open is called once, right before the
// file is uploaded.
type UploadFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

type ImageUpload struct {
	Name    string       `json:"name"`
	Status  UploadStatus `json:"status"`
	Error   string       `json:"error,omitempty"`
	Resized bool         `json:"resized,omitempty"`
}

// UploadReport is the per-file outcome of an image batch.
type UploadReport struct {
	ListingID int64         `json:"listing_id"`
	Uploads   []ImageUpload `json:"uploads"`
}

func (r UploadReport) Failed() []ImageUpload {
	failed := make([]ImageUpload, 0)
	for _, u := range r.Uploads {
		if u.Status == UploadError {
			failed = append(failed, u)
		}
	}
	return failed
}

// Message names every failed file with its reason, or is empty when all
// uploads completed.
func (r UploadReport) Message() string {
	failed := r.Failed()
	if len(failed) == 0 {
		return ""
	}

	parts := make([]string, 0, len(failed))
	for _, u := range failed {
		parts = append(parts, fmt.Sprintf("%s (%s)", u.Name, u.Error))
	}
	return "Some images failed to upload: " + strings.Join(parts, "; ")
}

type ListingService struct {
	api    listingAPI
	bus    event.Bus
	limits util.ImageLimits
}

func NewListingService(api listingAPI, bus event.Bus, limits util.ImageLimits) *ListingService {
	return &ListingService{
		api:    api,
		bus:    bus,
		limits: limits,
	}
}

func (s *ListingService) Get(ctx context.Context, id int64) (model.Listing, error) {
	listing, err := s.api.GetListing(ctx, id)
	if err != nil {
		if apiErr, ok := apierror.As(err); ok && apiErr.HTTPStatus == http.StatusNotFound {
			return model.Listing{}, model.ErrListingNotFound
		}
		return model.Listing{}, err
	}
	return listing, nil
}

// Create runs the two phases of listing creation. The error is non-nil only
// when the record itself could not be created; image failures are reported
// through the returned UploadReport.
func (s *ListingService) Create(ctx context.Context, session SessionView, form ListingForm, files []UploadFile) (model.Listing, UploadReport, error) {
	if session.Token == "" {
		return model.Listing{}, UploadReport{}, model.ErrNotAuthenticated
	}

	input, err := form.Validate()
	if err != nil {
		return model.Listing{}, UploadReport{}, err
	}

	listing, err := s.api.CreateListing(ctx, session.Token, input)
	if err != nil {
		return model.Listing{}, UploadReport{}, err
	}

	slog.InfoContext(ctx, "listing created", "listing_id", listing.ID)
	s.publish(session.ID, event.TypeListingCreated, listing)

	report := s.uploadAll(ctx, session, listing.ID, files)
	return listing, report, nil
}

// LoadForEdit returns the listing prefilled into a form together with the
// owner id used for the manage check.
func (s *ListingService) LoadForEdit(ctx context.Context, session SessionView, id int64) (model.Listing, ListingForm, error) {
	if session.Token == "" {
		return model.Listing{}, ListingForm{}, model.ErrNotAuthenticated
	}

	listing, err := s.Get(ctx, id)
	if err != nil {
		return model.Listing{}, ListingForm{}, err
	}
	if !CanManage(session.User, listing.OwnerUserID) {
		return listing, ListingForm{}, model.ErrForbidden
	}
	return listing, FormFromListing(listing), nil
}

// Update sends the whole form as the replacement payload.
func (s *ListingService) Update(ctx context.Context, session SessionView, id int64, ownerID int64, form ListingForm) (model.Listing, error) {
	if session.Token == "" {
		return model.Listing{}, model.ErrNotAuthenticated
	}
	if !CanManage(session.User, ownerID) {
		return model.Listing{}, model.ErrForbidden
	}

	input, err := form.Validate()
	if err != nil {
		return model.Listing{}, err
	}

	listing, err := s.api.UpdateListing(ctx, session.Token, id, input)
	if err != nil {
		return model.Listing{}, err
	}

	s.publish(session.ID, event.TypeListingUpdated, listing)
	return listing, nil
}

// AddImages uploads extra images to an existing listing.
func (s *ListingService) AddImages(ctx context.Context, session SessionView, id int64, ownerID int64, files []UploadFile) (UploadReport, error) {
	if session.Token == "" {
		return UploadReport{}, model.ErrNotAuthenticated
	}
	if !CanManage(session.User, ownerID) {
		return UploadReport{}, model.ErrForbidden
	}
	if len(files) == 0 {
		return UploadReport{}, apierror.Validation("file", "Select at least one image")
	}
	return s.uploadAll(ctx, session, id, files), nil
}

func (s *ListingService) Delete(ctx context.Context, session SessionView, id int64, ownerID int64, confirmed bool) error {
	if session.Token == "" {
		return model.ErrNotAuthenticated
	}
	if !CanManage(session.User, ownerID) {
		return model.ErrForbidden
	}
	if !confirmed {
		return model.ErrConfirmationRequired
	}

	if err := s.api.DeleteListing(ctx, session.Token, id); err != nil {
		return err
	}

	s.publish(session.ID, event.TypeListingDeleted, map[string]int64{"id": id})
	return nil
}

// uploadAll uploads files one after another. A failure is recorded against
// its file and the loop moves on; nothing already created is rolled back.
func (s *ListingService) uploadAll(ctx context.Context, session SessionView, listingID int64, files []UploadFile) UploadReport {
	report := UploadReport{ListingID: listingID, Uploads: make([]ImageUpload, len(files))}
	for i, f := range files {
		report.Uploads[i] = ImageUpload{Name: f.Name, Status: UploadPending}
	}
	if len(files) == 0 {
		return report
	}
	s.publish(session.ID, event.TypeImageProgress, report.snapshot())

	for i, f := range files {
		report.Uploads[i].Status = UploadUploading
		s.publish(session.ID, event.TypeImageProgress, report.snapshot())

		resized, err := s.uploadOne(ctx, session.Token, listingID, f)
		if err != nil {
			report.Uploads[i].Status = UploadError
			report.Uploads[i].Error = StatusMessage(err)
			slog.WarnContext(ctx, "image upload failed", "listing_id", listingID, "file", f.Name, "error", err)
		} else {
			report.Uploads[i].Status = UploadComplete
			report.Uploads[i].Resized = resized
		}
		s.publish(session.ID, event.TypeImageProgress, report.snapshot())
	}

	s.publish(session.ID, event.TypeUploadFinished, report.snapshot())
	return report
}

func (s *ListingService) uploadOne(ctx context.Context, token string, listingID int64, f UploadFile) (bool, error) {
	if f.Open == nil {
		return false, errors.New("file is not readable")
	}
	if f.Size > s.limits.MaxBytes {
		return false, apierror.New("FILE_TOO_LARGE", "file is larger than the upload limit", f.Name, http.StatusRequestEntityTooLarge)
	}

	rc, err := f.Open()
	if err != nil {
		return false, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	prepared, err := util.PrepareImage(f.Name, rc, s.limits)
	if err != nil {
		return false, err
	}

	if _, err := s.api.UploadListingImage(ctx, token, listingID, prepared.Name, prepared.ContentType, bytes.NewReader(prepared.Data)); err != nil {
		return false, err
	}
	return prepared.Resized, nil
}

// snapshot copies the report so published events never share the slice
// that is still being updated.
func (r UploadReport) snapshot() UploadReport {
	uploads := make([]ImageUpload, len(r.Uploads))
	copy(uploads, r.Uploads)
	return UploadReport{ListingID: r.ListingID, Uploads: uploads}
}

func (s *ListingService) publish(sessionID string, t event.Type, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{Type: t, Payload: payload, SessionID: sessionID})
}
