// Package memory is an in-process implementation of the repository ports. It
// backs the service and handler tests and local runs without PostgreSQL.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Clark-Hu/truereview/internal/domain"
	"github.com/Clark-Hu/truereview/internal/repository"
)

type followEdge struct {
	follower  int64
	following int64
}

type userRecord struct {
	profile domain.UserProfile
	email   string
	hash    string
}

// Store keeps every table in maps guarded by a single RWMutex. Identifiers are
// assigned from monotonically increasing counters.
type Store struct {
	mu sync.RWMutex

	movies  map[int64]domain.Movie
	users   map[int64]*userRecord
	entries map[int64]domain.WatchEntry
	follows map[followEdge]struct{}

	nextUserID    int64
	nextWatchedID int64
}

var (
	_ repository.CatalogStore   = (*Store)(nil)
	_ repository.WatchedStore   = (*Store)(nil)
	_ repository.UserStore      = (*Store)(nil)
	_ repository.DashboardStore = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		movies:  make(map[int64]domain.Movie),
		users:   make(map[int64]*userRecord),
		entries: make(map[int64]domain.WatchEntry),
		follows: make(map[followEdge]struct{}),
	}
}

// AddMovie inserts or replaces a catalog row.
func (s *Store) AddMovie(m domain.Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movies[m.ID] = m
}

// AddUser creates a user with the given profile fields and returns its id. The
// ID on profile is ignored.
func (s *Store) AddUser(profile domain.UserProfile, email, passwordHash string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	profile.ID = s.nextUserID
	s.users[profile.ID] = &userRecord{
		profile: profile,
		email:   strings.ToLower(strings.TrimSpace(email)),
		hash:    passwordHash,
	}
	return profile.ID
}

// Follow records a follow edge. Repeating an edge is a no-op.
func (s *Store) Follow(followerID, followingID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users[followerID] == nil || s.users[followingID] == nil {
		return repository.ErrNotFound
	}
	s.follows[followEdge{follower: followerID, following: followingID}] = struct{}{}
	return nil
}

// Search mirrors the SQL implementation: case-insensitive substring match,
// byte-order title sort with id tie-break, truncated to limit.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]domain.Movie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	out := make([]domain.Movie, 0)
	for _, m := range s.movies {
		if strings.Contains(strings.ToLower(m.Title), needle) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetByID returns a catalog row.
func (s *Store) GetByID(ctx context.Context, id int64) (domain.Movie, error) {
	if err := ctx.Err(); err != nil {
		return domain.Movie{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movies[id]
	if !ok {
		return domain.Movie{}, repository.ErrNotFound
	}
	return m, nil
}

func (s *Store) Create(ctx context.Context, params repository.WatchedCreateParams) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[params.MovieID]; !ok {
		return 0, repository.ErrNotFound
	}
	if s.users[params.UserID] == nil {
		return 0, repository.ErrNotFound
	}
	s.nextWatchedID++
	entry := domain.WatchEntry{
		ID:        s.nextWatchedID,
		UserID:    params.UserID,
		MovieID:   params.MovieID,
		Rating:    params.Rating,
		Review:    cloneString(params.Review),
		CreatedAt: time.Now().UTC(),
	}
	s.entries[entry.ID] = entry
	return entry.ID, nil
}

func (s *Store) Get(ctx context.Context, watchedID, userID int64) (domain.WatchEntryDetail, error) {
	if err := ctx.Err(); err != nil {
		return domain.WatchEntryDetail{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[watchedID]
	if !ok || e.UserID != userID {
		return domain.WatchEntryDetail{}, repository.ErrNotFound
	}
	m := s.movies[e.MovieID]
	return domain.WatchEntryDetail{
		ID:          e.ID,
		UserID:      e.UserID,
		MovieID:     e.MovieID,
		Rating:      e.Rating,
		Review:      cloneString(e.Review),
		MovieTitle:  m.Title,
		PosterURL:   m.PosterURL,
		ReleaseDate: m.ReleaseDate,
	}, nil
}

func (s *Store) List(ctx context.Context, userID int64) ([]domain.WatchEntrySummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	owned := s.ownedEntriesLocked(userID)
	out := make([]domain.WatchEntrySummary, 0, len(owned))
	for _, e := range owned {
		m := s.movies[e.MovieID]
		out = append(out, domain.WatchEntrySummary{
			ID:         e.ID,
			Rating:     e.Rating,
			MovieTitle: m.Title,
			PosterURL:  m.PosterURL,
		})
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, params repository.WatchedUpdateParams) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[params.WatchedID]
	if !ok || e.UserID != params.UserID {
		return 0, nil
	}
	e.Rating = params.Rating
	e.Review = cloneString(params.Review)
	s.entries[e.ID] = e
	return 1, nil
}

func (s *Store) Delete(ctx context.Context, watchedID, userID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[watchedID]
	if !ok || e.UserID != userID {
		return 0, nil
	}
	delete(s.entries, watchedID)
	return 1, nil
}

func (s *Store) Profile(ctx context.Context, userID int64) (domain.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserProfile{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profileLocked(userID)
}

func (s *Store) CredentialsByEmail(ctx context.Context, email string) (domain.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return domain.Credentials{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(email))
	for id, u := range s.users {
		if u.email == needle {
			return domain.Credentials{UserID: id, PasswordHash: u.hash}, nil
		}
	}
	return domain.Credentials{}, repository.ErrNotFound
}

func (s *Store) SetMedia(ctx context.Context, userID int64, media domain.ProfileMedia, filename string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	if u == nil {
		return 0, nil
	}
	name := filename
	switch media {
	case domain.MediaProfilePicture:
		u.profile.ProfilePicture = &name
	case domain.MediaBackground:
		u.profile.BackgroundPhoto = &name
	default:
		return 0, fmt.Errorf("unknown profile media %d", media)
	}
	return 1, nil
}

// ReadSnapshot holds the read lock for the duration of fn, so no writer can
// interleave with the dashboard reads.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(repository.DashboardQueries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(snapshot{s: s})
}

func (s *Store) profileLocked(userID int64) (domain.UserProfile, error) {
	u := s.users[userID]
	if u == nil {
		return domain.UserProfile{}, repository.ErrNotFound
	}
	p := u.profile
	p.Title = cloneString(p.Title)
	p.Bio = cloneString(p.Bio)
	p.ProfilePicture = cloneString(p.ProfilePicture)
	p.BackgroundPhoto = cloneString(p.BackgroundPhoto)
	if p.FavoriteMovieID != nil {
		id := *p.FavoriteMovieID
		p.FavoriteMovieID = &id
	}
	return p, nil
}

// ownedEntriesLocked returns the user's entries with the newest first.
func (s *Store) ownedEntriesLocked(userID int64) []domain.WatchEntry {
	owned := make([]domain.WatchEntry, 0)
	for _, e := range s.entries {
		if e.UserID == userID {
			owned = append(owned, e)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID > owned[j].ID })
	return owned
}

// snapshot answers dashboard queries while the caller holds the read lock.
type snapshot struct {
	s *Store
}

func (q snapshot) Profile(_ context.Context, userID int64) (domain.UserProfile, error) {
	return q.s.profileLocked(userID)
}

func (q snapshot) FollowCounts(_ context.Context, userID int64) (*domain.FollowCounts, error) {
	if q.s.users[userID] == nil {
		return nil, nil
	}
	var counts domain.FollowCounts
	for edge := range q.s.follows {
		if edge.following == userID {
			counts.Followers++
		}
		if edge.follower == userID {
			counts.Following++
		}
	}
	return &counts, nil
}

func (q snapshot) WatchStats(_ context.Context, userID int64) (domain.WatchStats, error) {
	owned := q.s.ownedEntriesLocked(userID)
	stats := domain.WatchStats{Total: int64(len(owned))}
	if len(owned) == 0 {
		return stats, nil
	}
	sum := 0
	for _, e := range owned {
		sum += e.Rating
	}
	avg := math.Round(float64(sum)/float64(len(owned))*100) / 100
	stats.Average = &avg
	return stats, nil
}

func (q snapshot) FavoriteTitle(_ context.Context, userID int64) (*string, error) {
	u := q.s.users[userID]
	if u == nil || u.profile.FavoriteMovieID == nil {
		return nil, nil
	}
	m, ok := q.s.movies[*u.profile.FavoriteMovieID]
	if !ok {
		return nil, nil
	}
	title := m.Title
	return &title, nil
}

func (q snapshot) LastWatched(_ context.Context, userID int64) (*domain.LastWatched, error) {
	owned := q.s.ownedEntriesLocked(userID)
	if len(owned) == 0 {
		return nil, nil
	}
	e := owned[0]
	m := q.s.movies[e.MovieID]
	return &domain.LastWatched{Rating: e.Rating, MovieTitle: m.Title, PosterURL: m.PosterURL}, nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
