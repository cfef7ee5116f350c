package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"estate-web/internal/model"
	"estate-web/internal/service"
	"estate-web/internal/views"
	"estate-web/pkg/apierror"
)

const multipartMemory = 8 << 20

type listingBackend interface {
	ListListings(ctx context.Context, query url.Values) (model.ListingPage, error)
	DeleteListing(ctx context.Context, token string, id int64) error
}

type ListingHandler struct {
	base            *Base
	listings        *service.ListingService
	backend         listingBackend
	defaultPageSize int
}

func NewListingHandler(base *Base, listings *service.ListingService, backend listingBackend, defaultPageSize int) *ListingHandler {
	return &ListingHandler{
		base:            base,
		listings:        listings,
		backend:         backend,
		defaultPageSize: defaultPageSize,
	}
}

func newListingsData(view service.ListingsView) views.ListingsData {
	data := views.ListingsData{View: view}
	if view.Filter.Page > 1 {
		data.PrevURL = view.Filter.PageURL(service.ClampPage(view.Filter.Page-1, view.TotalPages))
	}
	if view.Filter.Page < view.TotalPages {
		data.NextURL = view.Filter.PageURL(service.ClampPage(view.Filter.Page+1, view.TotalPages))
	}
	return data
}

// List shows one page of listings. Without a query string the session's
// current filter is reused.
func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	browser := s.Listings()

	filter := browser.View().Filter
	if len(r.URL.Query()) > 0 {
		filter = service.FilterFromQuery(r.URL.Query(), h.defaultPageSize)
	}
	browser.Apply(filter)

	view, err := browser.Fetch(r.Context(), h.backend)
	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, model.ErrSuperseded):
		view, err = browser.View(), nil
	}

	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}

	render(w, r, status, views.ListingsPage(h.base.page(r, s, "Listings"), newListingsData(view)))
}

func (h *ListingHandler) Reset(w http.ResponseWriter, r *http.Request) {
	filter := h.base.current(r).Listings().Reset()
	seeOther(w, r, "/listings?"+filter.Values().Encode())
}

func (h *ListingHandler) Detail(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	id, ok := idParam(r, "id")
	if !ok {
		h.base.fail(w, r, s, model.ErrListingNotFound)
		return
	}

	listing, err := h.listings.Get(r.Context(), id)
	if err != nil {
		h.base.fail(w, r, s, err)
		return
	}

	pc := h.base.page(r, s, listing.Title)
	render(w, r, http.StatusOK, views.ListingDetailPage(pc, views.ListingData{
		Listing:   listing,
		CanManage: service.CanManage(pc.User, listing.OwnerUserID),
	}))
}

// ConfirmDelete asks before removing a listing shown on the listings page.
func (h *ListingHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	if !h.base.requireSignIn(w, r, s) {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		h.base.fail(w, r, s, model.ErrListingNotFound)
		return
	}

	view := s.Listings().View()
	name := fmt.Sprintf("listing #%d", id)
	for _, item := range view.Items {
		if item.ID == id {
			name = fmt.Sprintf("%q", item.Title)
			break
		}
	}

	render(w, r, http.StatusOK, views.ConfirmPage(h.base.page(r, s, "Delete listing"), views.ConfirmData{
		Heading: "Delete listing",
		Message: "Delete " + name + "? This cannot be undone.",
		Action:  fmt.Sprintf("/listings/%d/delete", id),
		Cancel:  view.Filter.PageURL(view.Filter.Page),
	}))
}

// Delete removes the listing and shows the page that was on display with the
// item taken out; the list is not fetched again.
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	id, ok := idParam(r, "id")
	if !ok {
		h.base.fail(w, r, s, model.ErrListingNotFound)
		return
	}

	browser := s.Listings()
	err := browser.Remove(r.Context(), h.backend, s.Snapshot(), id, confirmed(r))
	h.base.forgetRejectedToken(r.Context(), s, err)

	pc := h.base.page(r, s, "Listings")
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	} else {
		pc.Notice = "Listing deleted"
	}
	render(w, r, status, views.ListingsPage(pc, newListingsData(browser.View())))
}

func (h *ListingHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	if !h.base.requireSignIn(w, r, s) {
		return
	}

	render(w, r, http.StatusOK, views.ListingFormPage(h.base.page(r, s, "New listing"), views.ListingFormData{
		Form:   service.NewListingForm(),
		Action: "/listings/new",
	}))
}

// Create stores the listing, then uploads the selected images one by one.
// When every image went through the browser lands on the new listing;
// otherwise the per-file outcome is shown.
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	if !h.base.requireSignIn(w, r, s) {
		return
	}

	files, cleanup, err := uploadFiles(r, "images")
	defer cleanup()
	form := formFromRequest(r)
	formData := views.ListingFormData{Form: form, Action: "/listings/new"}
	if err != nil {
		h.renderForm(w, r, s, "New listing", formData, err)
		return
	}

	listing, report, err := h.listings.Create(r.Context(), s.Snapshot(), form, files)
	if err != nil {
		h.base.forgetRejectedToken(r.Context(), s, err)
		h.renderForm(w, r, s, "New listing", formData, err)
		return
	}

	if report.Message() == "" {
		seeOther(w, r, fmt.Sprintf("/listings/%d", listing.ID))
		return
	}

	pc := h.base.page(r, s, "Listing created")
	pc.Error = report.Message()
	pc.Notice = "Your listing was created."
	render(w, r, http.StatusOK, views.UploadReportPage(pc, views.UploadData{Listing: listing, Report: report, Created: true}))
}

func (h *ListingHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	if !h.base.requireSignIn(w, r, s) {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		h.base.fail(w, r, s, model.ErrListingNotFound)
		return
	}

	listing, form, err := h.listings.LoadForEdit(r.Context(), s.Snapshot(), id)
	if err != nil {
		h.base.fail(w, r, s, err)
		return
	}

	render(w, r, http.StatusOK, views.ListingFormPage(h.base.page(r, s, "Edit listing"), editFormData(listing, form)))
}

func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	if !h.base.requireSignIn(w, r, s) {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		h.base.fail(w, r, s, model.ErrListingNotFound)
		return
	}

	ownerID := ownerFromForm(r)
	form := formFromRequest(r)
	if _, err := h.listings.Update(r.Context(), s.Snapshot(), id, ownerID, form); err != nil {
		h.base.forgetRejectedToken(r.Context(), s, err)
		data := views.ListingFormData{Form: form, Action: fmt.Sprintf("/listings/%d/edit", id), Editing: true, ListingID: id, OwnerID: ownerID}
		h.renderForm(w, r, s, "Edit listing", data, err)
		return
	}

	seeOther(w, r, fmt.Sprintf("/listings/%d", id))
}

// AddImages uploads more images from the edit page.
func (h *ListingHandler) AddImages(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	if !h.base.requireSignIn(w, r, s) {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		h.base.fail(w, r, s, model.ErrListingNotFound)
		return
	}

	files, cleanup, err := uploadFiles(r, "images")
	defer cleanup()
	if err != nil {
		h.base.fail(w, r, s, err)
		return
	}

	report, err := h.listings.AddImages(r.Context(), s.Snapshot(), id, ownerFromForm(r), files)
	if err != nil {
		h.base.fail(w, r, s, err)
		return
	}

	pc := h.base.page(r, s, "Image upload")
	pc.Error = report.Message()
	if pc.Error == "" {
		pc.Notice = "All images were uploaded."
	}
	render(w, r, http.StatusOK, views.UploadReportPage(pc, views.UploadData{Listing: model.Listing{ID: id}, Report: report}))
}

func (h *ListingHandler) EditConfirmDelete(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	if !h.base.requireSignIn(w, r, s) {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		h.base.fail(w, r, s, model.ErrListingNotFound)
		return
	}

	listing, _, err := h.listings.LoadForEdit(r.Context(), s.Snapshot(), id)
	if err != nil {
		h.base.fail(w, r, s, err)
		return
	}

	render(w, r, http.StatusOK, views.ConfirmPage(h.base.page(r, s, "Delete listing"), views.ConfirmData{
		Heading: "Delete listing",
		Message: fmt.Sprintf("Delete %q? This cannot be undone.", listing.Title),
		Action:  fmt.Sprintf("/listings/%d/edit/delete", id),
		Cancel:  fmt.Sprintf("/listings/%d/edit", id),
		Hidden:  []views.HiddenField{{Name: "owner_user_id", Value: strconv.FormatInt(listing.OwnerUserID, 10)}},
	}))
}

// EditDelete deletes from the edit page and returns to the listings view.
func (h *ListingHandler) EditDelete(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	if !h.base.requireSignIn(w, r, s) {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		h.base.fail(w, r, s, model.ErrListingNotFound)
		return
	}

	if err := h.listings.Delete(r.Context(), s.Snapshot(), id, ownerFromForm(r), confirmed(r)); err != nil {
		h.base.fail(w, r, s, err)
		return
	}

	seeOther(w, r, "/listings")
}

func (h *ListingHandler) renderForm(w http.ResponseWriter, r *http.Request, s *service.Session, title string, data views.ListingFormData, err error) {
	pc := h.base.page(r, s, title)
	pc.Error = service.StatusMessage(err)
	render(w, r, statusFor(err), views.ListingFormPage(pc, data))
}

func editFormData(listing model.Listing, form service.ListingForm) views.ListingFormData {
	return views.ListingFormData{
		Form:      form,
		Action:    fmt.Sprintf("/listings/%d/edit", listing.ID),
		Editing:   true,
		ListingID: listing.ID,
		OwnerID:   listing.OwnerUserID,
		Images:    listing.Images,
	}
}

func formFromRequest(r *http.Request) service.ListingForm {
	return service.ListingForm{
		Title:        r.PostFormValue("title"),
		Description:  r.PostFormValue("description"),
		PropertyType: r.PostFormValue("property_type"),
		ListingType:  r.PostFormValue("listing_type"),
		Price:        r.PostFormValue("price"),
		Currency:     r.PostFormValue("currency"),
		City:         r.PostFormValue("city"),
		AreaSqm:      r.PostFormValue("area_sqm"),
		Rooms:        r.PostFormValue("rooms"),
	}
}

func ownerFromForm(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.PostFormValue("owner_user_id"), 10, 64)
	return id
}

// uploadFiles parses a multipart form and returns the files under field.
// Plain url-encoded forms yield no files.
func uploadFiles(r *http.Request, field string) ([]service.UploadFile, func(), error) {
	noop := func() {}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		if isPayloadTooLarge(err) {
			return nil, noop, apierror.New("PAYLOAD_TOO_LARGE", "The selected images are larger than the upload limit", "MAX_UPLOAD_SIZE", http.StatusRequestEntityTooLarge)
		}
		return nil, noop, apierror.New("BAD_REQUEST", "The upload could not be read", err.Error(), http.StatusBadRequest)
	}

	cleanup := func() { _ = r.MultipartForm.RemoveAll() }
	headers := r.MultipartForm.File[field]
	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Filename == "" && fh.Size == 0 {
			continue
		}
		files = append(files, service.UploadFile{
			Name: fh.Filename,
			Size: fh.Size,
			Open: openHeader(fh),
		})
	}
	return files, cleanup, nil
}

func openHeader(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}
