package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/Clark-Hu/truereview/internal/profile"
)

const uploadField = "image"

type uploadFunc func(ctx context.Context, userID int64, up profile.Upload) (profile.Result, error)

func (s *Server) handleUploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	s.handleUpload(w, r, s.profile.SetProfilePicture)
}

func (s *Server) handleUploadBackground(w http.ResponseWriter, r *http.Request) {
	s.handleUpload(w, r, s.profile.SetBackground)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, store uploadFunc) {
	// Multipart framing adds a little on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.UploadMaxBytes+maxRequestBody)
	if err := r.ParseMultipartForm(s.cfg.UploadMaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Upload is too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Expected a multipart upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "No file uploaded")
		return
	}
	defer file.Close()

	res, err := store(r.Context(), sessionUser(r), profile.Upload{Name: header.Filename, Content: file})
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}
