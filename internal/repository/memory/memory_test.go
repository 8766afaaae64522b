package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Clark-Hu/truereview/internal/domain"
	"github.com/Clark-Hu/truereview/internal/repository"
)

func TestStore_SearchMatchesSQLOrdering(t *testing.T) {
	s := New()
	s.AddMovie(domain.Movie{ID: 2, Title: "alien"})
	s.AddMovie(domain.Movie{ID: 1, Title: "Alien"})
	s.AddMovie(domain.Movie{ID: 3, Title: "Alien"})
	s.AddMovie(domain.Movie{ID: 4, Title: "Heat"})

	got, err := s.Search(context.Background(), "ALI", 50)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	wantIDs := []int64{1, 3, 2}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d movies, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Fatalf("position %d: id %d, want %d", i, got[i].ID, id)
		}
	}

	limited, _ := s.Search(context.Background(), "", 2)
	if len(limited) != 2 {
		t.Fatalf("limit ignored: %d", len(limited))
	}
}

func TestStore_OwnershipScoping(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.AddMovie(domain.Movie{ID: 1, Title: "Heat", ReleaseDate: time.Date(1995, 12, 15, 0, 0, 0, 0, time.UTC)})
	alice := s.AddUser(domain.UserProfile{Username: "alice"}, "alice@example.com", "h")
	bob := s.AddUser(domain.UserProfile{Username: "bob"}, "bob@example.com", "h")

	id, err := s.Create(ctx, repository.WatchedCreateParams{UserID: alice, MovieID: 1, Rating: 4})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Get(ctx, id, bob); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("foreign get: %v", err)
	}
	if n, _ := s.Update(ctx, repository.WatchedUpdateParams{WatchedID: id, UserID: bob, Rating: 1}); n != 0 {
		t.Fatalf("foreign update affected %d", n)
	}
	if n, _ := s.Delete(ctx, id, bob); n != 0 {
		t.Fatalf("foreign delete affected %d", n)
	}
	if _, err := s.Create(ctx, repository.WatchedCreateParams{UserID: alice, MovieID: 99, Rating: 4}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown movie: %v", err)
	}
	if n, _ := s.Delete(ctx, id, alice); n != 1 {
		t.Fatalf("owner delete affected %d", n)
	}
}

func TestStore_SnapshotQueries(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.AddMovie(domain.Movie{ID: 1, Title: "Alien", PosterURL: "a.jpg"})
	s.AddMovie(domain.Movie{ID: 2, Title: "Aliens", PosterURL: "b.jpg"})
	dangling := int64(77)
	alice := s.AddUser(domain.UserProfile{Username: "alice", FavoriteMovieID: &dangling}, "alice@example.com", "h")
	bob := s.AddUser(domain.UserProfile{Username: "bob"}, "bob@example.com", "h")
	if err := s.Follow(bob, alice); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := s.Follow(alice, 999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("follow missing user: %v", err)
	}

	for _, r := range []int{3, 4, 4} {
		movie := int64(1)
		if r == 4 {
			movie = 2
		}
		if _, err := s.Create(ctx, repository.WatchedCreateParams{UserID: alice, MovieID: movie, Rating: r}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	err := s.ReadSnapshot(ctx, func(q repository.DashboardQueries) error {
		counts, _ := q.FollowCounts(ctx, alice)
		if counts == nil || counts.Followers != 1 || counts.Following != 0 {
			t.Errorf("counts = %+v", counts)
		}
		stats, _ := q.WatchStats(ctx, alice)
		if stats.Total != 3 || stats.Average == nil || *stats.Average != 3.67 {
			t.Errorf("stats = %+v", stats)
		}
		fav, _ := q.FavoriteTitle(ctx, alice)
		if fav != nil {
			t.Errorf("dangling favorite resolved to %q", *fav)
		}
		last, _ := q.LastWatched(ctx, alice)
		if last == nil || last.MovieTitle != "Aliens" || last.PosterURL != "b.jpg" {
			t.Errorf("last = %+v", last)
		}
		missing, _ := q.FollowCounts(ctx, 999)
		if missing != nil {
			t.Errorf("missing user counts = %+v", missing)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
}
