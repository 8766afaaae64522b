package httpserver

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/hlog"

	"github.com/Clark-Hu/truereview/internal/apperror"
	"github.com/Clark-Hu/truereview/internal/auth"
	"github.com/Clark-Hu/truereview/internal/watchlist"
)

var errBadRating = errors.New("rating must be an integer")

// ratingRequest is the JSON form of a rating submission. It uses the same
// field names as the HTML form.
type ratingRequest struct {
	Rating int     `json:"rating"`
	Review *string `json:"review"`
}

func (s *Server) handleAddMovie(w http.ResponseWriter, r *http.Request) {
	movieID, err := idParam(r)
	if err != nil {
		http.Redirect(w, r, "/add-movie", http.StatusSeeOther)
		return
	}
	retry := fmt.Sprintf("/rate-movie/%d?error=1", movieID)

	in, err := readRating(w, r)
	if err != nil {
		http.Redirect(w, r, retry, http.StatusSeeOther)
		return
	}
	if _, err := s.watchlist.Create(r.Context(), sessionUser(r), movieID, in); err != nil {
		s.logFormFailure(r, err)
		http.Redirect(w, r, retry, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	watchedID, err := idParam(r)
	if err != nil {
		http.Redirect(w, r, "/watched", http.StatusSeeOther)
		return
	}
	retry := fmt.Sprintf("/update-movie/%d?error=1", watchedID)

	in, err := readRating(w, r)
	if err != nil {
		http.Redirect(w, r, retry, http.StatusSeeOther)
		return
	}
	err = s.watchlist.Update(r.Context(), watchedID, sessionUser(r), in)
	switch {
	case err == nil, apperror.IsNotFound(err):
		http.Redirect(w, r, "/watched", http.StatusSeeOther)
	default:
		s.logFormFailure(r, err)
		http.Redirect(w, r, retry, http.StatusSeeOther)
	}
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	watchedID, err := idParam(r)
	if err == nil {
		if err := s.watchlist.Delete(r.Context(), watchedID, sessionUser(r)); err != nil && !apperror.IsNotFound(err) {
			s.logFormFailure(r, err)
		}
	}
	http.Redirect(w, r, "/watched", http.StatusSeeOther)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/login?error=1", http.StatusSeeOther)
		return
	}

	userID, err := s.login.Login(r.Context(), auth.LoginInput{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	})
	if err != nil {
		if !apperror.IsUnauthenticated(err) {
			s.logFormFailure(r, err)
		}
		http.Redirect(w, r, "/login?error=1", http.StatusSeeOther)
		return
	}
	if err := s.sessions.Issue(w, userID); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("issue session failed")
		http.Redirect(w, r, "/login?error=1", http.StatusSeeOther)
		return
	}
	hlog.FromRequest(r).Info().Int64("user_id", userID).Msg("user signed in")
	http.Redirect(w, r, "/welcome", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// readRating accepts either a JSON body or a url-encoded form. A rating that is
// not an integer is rejected here; range checks belong to the watchlist.
func readRating(w http.ResponseWriter, r *http.Request) (watchlist.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()

	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		var req ratingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return watchlist.Input{}, err
		}
		return watchlist.Input{Rating: req.Rating, Review: req.Review}, nil
	}

	if err := r.ParseForm(); err != nil {
		return watchlist.Input{}, err
	}
	rating, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("rating")))
	if err != nil {
		return watchlist.Input{}, errBadRating
	}
	in := watchlist.Input{Rating: rating}
	if r.PostForm.Has("review") {
		review := r.PostForm.Get("review")
		in.Review = &review
	}
	return in, nil
}

func (s *Server) logFormFailure(r *http.Request, err error) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Kind != apperror.KindStore {
		hlog.FromRequest(r).Debug().Str("kind", appErr.Kind.String()).Msg(appErr.Message)
		return
	}
	hlog.FromRequest(r).Error().Err(err).Msg("form submission failed")
}
