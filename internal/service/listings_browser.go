package service

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"estate-web/internal/model"
	"estate-web/pkg/apierror"
)

type listingsAPI interface {
	ListListings(ctx context.Context, query url.Values) (model.ListingPage, error)
}

type listingDeleter interface {
	DeleteListing(ctx context.Context, token string, id int64) error
}

// ListingsBrowser holds one browser's filter, the page on display and the
// in-flight fetch. Starting a fetch cancels the previous one, so only the
// newest response ever reaches the displayed data.
type ListingsBrowser struct {
	mu              sync.Mutex
	defaultPageSize int
	filter          FilterState
	items           []model.Listing
	total           int
	loaded          bool
	errMsg          string
	seq             uint64
	cancel          context.CancelFunc
}

type ListingsView struct {
	Filter     FilterState
	Items      []model.Listing
	Total      int
	TotalPages int
	Loaded     bool
	Error      string
}

func NewListingsBrowser(defaultPageSize int) *ListingsBrowser {
	return &ListingsBrowser{
		defaultPageSize: defaultPageSize,
		filter:          DefaultFilter(defaultPageSize),
	}
}

// Apply moves to next. A change to anything but the page sends the user back
// to page 1; a page-only change is clamped to the known page range.
func (b *ListingsBrowser) Apply(next FilterState) FilterState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !next.SameExceptPage(b.filter) {
		next.Page = 1
	} else if b.loaded {
		next.Page = ClampPage(next.Page, TotalPages(b.total, next.PageSize))
	} else if next.Page < 1 {
		next.Page = 1
	}

	b.filter = next
	return next
}

// Reset restores the default filter.
func (b *ListingsBrowser) Reset() FilterState {
	return b.Apply(DefaultFilter(b.defaultPageSize))
}

func (b *ListingsBrowser) View() ListingsView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewLocked()
}

func (b *ListingsBrowser) viewLocked() ListingsView {
	items := make([]model.Listing, len(b.items))
	copy(items, b.items)
	return ListingsView{
		Filter:     b.filter,
		Items:      items,
		Total:      b.total,
		TotalPages: TotalPages(b.total, b.filter.PageSize),
		Loaded:     b.loaded,
		Error:      b.errMsg,
	}
}

// Fetch loads the page for the current filter. When a newer fetch starts
// first, this one is cancelled and returns ErrSuperseded without touching
// the displayed data.
func (b *ListingsBrowser) Fetch(ctx context.Context, api listingsAPI) (ListingsView, error) {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	b.seq++
	seq := b.seq
	b.cancel = cancel
	query := b.filter.BackendQuery()
	b.mu.Unlock()
	defer cancel()

	page, err := api.ListListings(fetchCtx, query)

	b.mu.Lock()
	defer b.mu.Unlock()

	if seq != b.seq {
		return b.viewLocked(), model.ErrSuperseded
	}
	b.cancel = nil

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return b.viewLocked(), err
		}
		b.errMsg = apierror.UserMessage(err)
		return b.viewLocked(), err
	}

	b.items = page.Items
	b.total = page.Total
	b.loaded = true
	b.errMsg = ""
	return b.viewLocked(), nil
}

// Remove deletes a listing and patches the displayed page in place: the item
// disappears and the total drops by one, with no re-fetch. On failure the
// displayed data is left as it was.
func (b *ListingsBrowser) Remove(ctx context.Context, api listingDeleter, session SessionView, id int64, confirmed bool) error {
	if session.Token == "" {
		return b.fail(model.ErrNotAuthenticated)
	}
	if !confirmed {
		return b.fail(model.ErrConfirmationRequired)
	}

	b.mu.Lock()
	for _, item := range b.items {
		if item.ID == id && !CanManage(session.User, item.OwnerUserID) {
			b.mu.Unlock()
			return b.fail(apierror.Forbidden("You can only delete your own listings"))
		}
	}
	b.mu.Unlock()

	if err := api.DeleteListing(ctx, session.Token, id); err != nil {
		return b.fail(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, item := range b.items {
		if item.ID != id {
			continue
		}
		b.items = append(b.items[:i:i], b.items[i+1:]...)
		if b.total > 0 {
			b.total--
		}
		break
	}
	b.errMsg = ""
	return nil
}

func (b *ListingsBrowser) fail(err error) error {
	b.mu.Lock()
	b.errMsg = StatusMessage(err)
	b.mu.Unlock()
	return err
}
