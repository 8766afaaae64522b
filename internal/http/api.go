package httpserver

import (
	"net/http"

	"github.com/Clark-Hu/truereview/internal/domain"
	"github.com/Clark-Hu/truereview/internal/watchlist"
)

const releaseDateLayout = "2006-01-02"

type userResponse struct {
	Username               string  `json:"username"`
	Title                  *string `json:"title"`
	Bio                    *string `json:"bio"`
	ProfilePicture         *string `json:"profile_picture"`
	ProfileBackgroundPhoto *string `json:"profile_background_photo"`
	FavoriteMovie          *int64  `json:"favorite_movie"`
}

type lastWatchedResponse struct {
	UserRating    int    `json:"user_rating"`
	MovieTitle    string `json:"movie_title"`
	PosterFullURL string `json:"poster_full_url"`
}

type dashboardResponse struct {
	User               userResponse         `json:"user"`
	FollowerCount      int64                `json:"follower_count"`
	FollowingCount     int64                `json:"following_count"`
	TotalMovies        int64                `json:"total_movies"`
	AvgRating          *float64             `json:"avg_rating"`
	FavoriteMovieTitle *string              `json:"favorite_movie_title"`
	Last               *lastWatchedResponse `json:"last"`
}

type movieResponse struct {
	MovieID          int64  `json:"movie_id"`
	MovieTitle       string `json:"movie_title"`
	PosterFullURL    string `json:"poster_full_url"`
	MovieReleaseDate string `json:"movie_release_date"`
	ReleaseYear      int    `json:"releaseYear"`
}

type searchResultResponse struct {
	movieResponse
	IsCurrentYear   bool   `json:"isCurrentYear"`
	FullReleaseDate string `json:"fullReleaseDate"`
}

type watchedSummaryResponse struct {
	WatchedID     int64  `json:"watched_id"`
	UserRating    int    `json:"user_rating"`
	MovieTitle    string `json:"movie_title"`
	PosterFullURL string `json:"poster_full_url"`
}

type watchedDetailResponse struct {
	WatchedID        int64   `json:"watched_id"`
	UserRating       int     `json:"user_rating"`
	Review           *string `json:"review"`
	MovieID          int64   `json:"movie_id"`
	MovieTitle       string  `json:"movie_title"`
	PosterFullURL    string  `json:"poster_full_url"`
	MovieReleaseDate string  `json:"movie_release_date"`
	ReleaseYear      int     `json:"releaseYear"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.dashboard.Compute(r.Context(), sessionUser(r))
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toDashboardResponse(snap))
}

func (s *Server) handleSearchMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := s.catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	items := make([]searchResultResponse, 0, len(movies))
	for _, m := range movies {
		items = append(items, searchResultResponse{
			movieResponse:   toMovieResponse(m),
			IsCurrentYear:   m.CurrentYear,
			FullReleaseDate: m.FullReleaseDate,
		})
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid movie id")
		return
	}
	movie, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleListWatched(w http.ResponseWriter, r *http.Request) {
	entries, err := s.watchlist.List(r.Context(), sessionUser(r))
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	items := make([]watchedSummaryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, watchedSummaryResponse{
			WatchedID:     e.ID,
			UserRating:    e.Rating,
			MovieTitle:    e.MovieTitle,
			PosterFullURL: e.PosterURL,
		})
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetWatched(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid entry id")
		return
	}
	entry, err := s.watchlist.Get(r.Context(), id, sessionUser(r))
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toWatchedDetailResponse(entry))
}

func toDashboardResponse(d domain.Dashboard) dashboardResponse {
	resp := dashboardResponse{
		User: userResponse{
			Username:               d.User.Username,
			Title:                  d.User.Title,
			Bio:                    d.User.Bio,
			ProfilePicture:         d.User.ProfilePicture,
			ProfileBackgroundPhoto: d.User.BackgroundPhoto,
			FavoriteMovie:          d.User.FavoriteMovieID,
		},
		FollowerCount:      d.Follows.Followers,
		FollowingCount:     d.Follows.Following,
		TotalMovies:        d.Stats.Total,
		AvgRating:          d.Stats.Average,
		FavoriteMovieTitle: d.FavoriteMovieTitle,
	}
	if d.LastWatched != nil {
		resp.Last = &lastWatchedResponse{
			UserRating:    d.LastWatched.Rating,
			MovieTitle:    d.LastWatched.MovieTitle,
			PosterFullURL: d.LastWatched.PosterURL,
		}
	}
	return resp
}

func toMovieResponse(m domain.PresentedMovie) movieResponse {
	return movieResponse{
		MovieID:          m.ID,
		MovieTitle:       m.Title,
		PosterFullURL:    m.PosterURL,
		MovieReleaseDate: m.ReleaseDate.Format(releaseDateLayout),
		ReleaseYear:      m.ReleaseYear,
	}
}

func toWatchedDetailResponse(d watchlist.Detail) watchedDetailResponse {
	return watchedDetailResponse{
		WatchedID:        d.ID,
		UserRating:       d.Rating,
		Review:           d.Review,
		MovieID:          d.MovieID,
		MovieTitle:       d.MovieTitle,
		PosterFullURL:    d.PosterURL,
		MovieReleaseDate: d.ReleaseDate.Format(releaseDateLayout),
		ReleaseYear:      d.ReleaseYear,
	}
}
