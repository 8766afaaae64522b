package watchlist

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Clark-Hu/truereview/internal/apperror"
	"github.com/Clark-Hu/truereview/internal/domain"
	"github.com/Clark-Hu/truereview/internal/logging"
	"github.com/Clark-Hu/truereview/internal/repository/memory"
)

type fixture struct {
	ctx   context.Context
	store *memory.Store
	svc   *Service
	alice int64
	bob   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	store.AddMovie(domain.Movie{ID: 100, Title: "Heat", PosterURL: "heat.jpg", ReleaseDate: time.Date(1995, time.December, 15, 0, 0, 0, 0, time.UTC)})
	store.AddMovie(domain.Movie{ID: 200, Title: "Ronin", PosterURL: "ronin.jpg", ReleaseDate: time.Date(1998, time.September, 25, 0, 0, 0, 0, time.UTC)})
	return &fixture{
		ctx:   context.Background(),
		store: store,
		svc:   NewService(store, logging.Discard()),
		alice: store.AddUser(domain.UserProfile{Username: "alice"}, "alice@example.com", "h"),
		bob:   store.AddUser(domain.UserProfile{Username: "bob"}, "bob@example.com", "h"),
	}
}

func ptr(s string) *string { return &s }

func TestCreateGetRoundTrip(t *testing.T) {
	f := newFixture(t)

	id, err := f.svc.Create(f.ctx, f.alice, 100, Input{Rating: 4, Review: ptr("  tense  ")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := f.svc.Get(f.ctx, id, f.alice)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Rating != 4 || got.Review == nil || *got.Review != "tense" {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if got.MovieID != 100 || got.MovieTitle != "Heat" || got.ReleaseYear != 1995 {
		t.Fatalf("movie fields not joined: %+v", got)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   Input
	}{
		{name: "rating zero", in: Input{Rating: 0}},
		{name: "rating negative", in: Input{Rating: -1}},
		{name: "rating six", in: Input{Rating: 6}},
		{name: "review too long", in: Input{Rating: 3, Review: ptr(strings.Repeat("a", MaxReviewLength+1))}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, f.alice, 100, tc.in)
			if !apperror.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	list, _ := f.svc.List(f.ctx, f.alice)
	if len(list) != 0 {
		t.Fatalf("invalid input persisted %d entries", len(list))
	}
}

func TestCreate_BoundaryRatingsAndBlankReview(t *testing.T) {
	f := newFixture(t)

	for _, rating := range []int{MinRating, MaxRating} {
		id, err := f.svc.Create(f.ctx, f.alice, 100, Input{Rating: rating, Review: ptr("   ")})
		if err != nil {
			t.Fatalf("rating %d: %v", rating, err)
		}
		got, _ := f.svc.Get(f.ctx, id, f.alice)
		if got.Review != nil {
			t.Fatalf("blank review stored as %q", *got.Review)
		}
	}

	if _, err := f.svc.Create(f.ctx, f.alice, 100, Input{Rating: 2, Review: ptr(strings.Repeat("é", MaxReviewLength))}); err != nil {
		t.Fatalf("review at the limit rejected: %v", err)
	}
}

func TestCreate_UnknownMovie(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(f.ctx, f.alice, 999, Input{Rating: 3}); !apperror.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCreate_DuplicatesAllowed(t *testing.T) {
	f := newFixture(t)
	first, _ := f.svc.Create(f.ctx, f.alice, 100, Input{Rating: 3})
	second, err := f.svc.Create(f.ctx, f.alice, 100, Input{Rating: 5})
	if err != nil {
		t.Fatalf("rewatch: %v", err)
	}
	if second <= first {
		t.Fatalf("ids not increasing: %d then %d", first, second)
	}
}

func TestGet_ForeignIsIndistinguishableFromMissing(t *testing.T) {
	f := newFixture(t)
	id, _ := f.svc.Create(f.ctx, f.alice, 100, Input{Rating: 3})

	_, foreignErr := f.svc.Get(f.ctx, id, f.bob)
	_, missingErr := f.svc.Get(f.ctx, id+1000, f.bob)
	if !apperror.IsNotFound(foreignErr) || !apperror.IsNotFound(missingErr) {
		t.Fatalf("expected NotFound for both, got %v and %v", foreignErr, missingErr)
	}
	if foreignErr.Error() != missingErr.Error() {
		t.Fatalf("errors differ: %q vs %q", foreignErr, missingErr)
	}
}

func TestList_NewestFirst(t *testing.T) {
	f := newFixture(t)
	a, _ := f.svc.Create(f.ctx, f.alice, 100, Input{Rating: 3})
	b, _ := f.svc.Create(f.ctx, f.alice, 200, Input{Rating: 5})
	_, _ = f.svc.Create(f.ctx, f.bob, 200, Input{Rating: 1})

	list, err := f.svc.List(f.ctx, f.alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != b || list[1].ID != a {
		t.Fatalf("list = %+v", list)
	}
	if list[0].MovieTitle != "Ronin" || list[0].PosterURL != "ronin.jpg" {
		t.Fatalf("summary not joined: %+v", list[0])
	}

	empty, err := f.svc.List(f.ctx, 12345)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("unknown user list = %#v, %v", empty, err)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	id, _ := f.svc.Create(f.ctx, f.alice, 100, Input{Rating: 2, Review: ptr("meh")})

	if err := f.svc.Update(f.ctx, id, f.alice, Input{Rating: 5, Review: ptr("grew on me")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := f.svc.Get(f.ctx, id, f.alice)
	if got.Rating != 5 || *got.Review != "grew on me" {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.MovieID != 100 || got.UserID != f.alice {
		t.Fatalf("update changed movie or owner: %+v", got)
	}

	if err := f.svc.Update(f.ctx, id, f.bob, Input{Rating: 1}); !apperror.IsNotFound(err) {
		t.Fatalf("foreign update: %v", err)
	}
	if err := f.svc.Update(f.ctx, id, f.alice, Input{Rating: 9}); !apperror.IsValidation(err) {
		t.Fatalf("invalid update: %v", err)
	}
	got, _ = f.svc.Get(f.ctx, id, f.alice)
	if got.Rating != 5 {
		t.Fatalf("rejected updates mutated the entry: %+v", got)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	id, _ := f.svc.Create(f.ctx, f.alice, 100, Input{Rating: 4})

	if err := f.svc.Delete(f.ctx, id, f.bob); !apperror.IsNotFound(err) {
		t.Fatalf("foreign delete: %v", err)
	}
	if err := f.svc.Delete(f.ctx, 424242, f.alice); !apperror.IsNotFound(err) {
		t.Fatalf("missing delete: %v", err)
	}
	if err := f.svc.Delete(f.ctx, id, f.alice); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.Delete(f.ctx, id, f.alice); !apperror.IsNotFound(err) {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := f.svc.Get(f.ctx, id, f.alice); !apperror.IsNotFound(err) {
		t.Fatalf("deleted entry readable: %v", err)
	}
}

func BenchmarkCreate(b *testing.B) {
	store := memory.New()
	store.AddMovie(domain.Movie{ID: 1, Title: "Bench"})
	user := store.AddUser(domain.UserProfile{Username: "bench"}, "b@example.com", "h")
	svc := NewService(store, logging.Discard())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Create(ctx, user, 1, Input{Rating: i%5 + 1}); err != nil {
			b.Fatalf("create: %v", err)
		}
	}
}
