package service

import (
	"sync"
	"time"

	"estate-web/internal/model"
)

// Session is the per-browser state every consumer receives explicitly: the
// bearer token, the resolved profile and the loading flag, plus the view
// state of the pages that browser has open.
type Session struct {
	id string

	// restoreMu guards restored; the persisted token is read back until one
	// read succeeds.
	restoreMu sync.Mutex
	restored  bool

	// storeMu orders TokenStore writes. written is the sequence number of the
	// action whose token is in the store.
	storeMu sync.Mutex
	written uint64

	mu       sync.Mutex
	token    string
	user     *model.SessionUser
	loading  bool
	seq      uint64
	lastSeen time.Time

	listings *ListingsBrowser
	users    *UserDirectory
}

// SessionView is an immutable copy of the session for rendering.
type SessionView struct {
	ID      string
	Token   string
	User    *model.SessionUser
	Loading bool
}

func (v SessionView) Authenticated() bool {
	return v.Token != "" && v.User != nil
}

func newSession(id string, pageSize int) *Session {
	return &Session{
		id:       id,
		lastSeen: time.Now(),
		listings: NewListingsBrowser(pageSize),
		users:    &UserDirectory{},
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := SessionView{ID: s.id, Token: s.token, Loading: s.loading}
	if s.user != nil {
		user := *s.user
		view.User = &user
	}
	return view
}

func (s *Session) Listings() *ListingsBrowser {
	return s.listings
}

func (s *Session) Users() *UserDirectory {
	return s.users
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// begin starts an action and returns its sequence number. With gate set, an
// action already in flight makes begin fail with ErrBusy.
func (s *Session) begin(gate bool) (uint64, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gate && s.loading {
		return 0, "", model.ErrBusy
	}
	s.seq++
	s.loading = true
	return s.seq, s.token, nil
}

// apply runs fn under the lock only if seq is still the latest action.
func (s *Session) apply(seq uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		return false
	}
	fn()
	return true
}

func (s *Session) current(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.seq
}

func (s *Session) anonymous() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token == ""
}

func (s *Session) finish(seq uint64) {
	s.apply(seq, func() { s.loading = false })
}

// clear drops token and profile and invalidates every in-flight action. It
// returns the sequence number of the clearing action.
func (s *Session) clear() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.token = ""
	s.user = nil
	s.loading = false
	return s.seq
}
