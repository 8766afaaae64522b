// Package profile stores uploaded profile images and records them on the user.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/truereview/internal/apperror"
	"github.com/Clark-Hu/truereview/internal/domain"
	"github.com/Clark-Hu/truereview/internal/metrics"
	"github.com/Clark-Hu/truereview/internal/repository"
)

const (
	PictureDir    = "profile_pictures"
	BackgroundDir = "profile_backgrounds"
)

var allowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

var allowedExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
}

// Upload is a file received from the client. Name is only used for its
// extension.
type Upload struct {
	Name    string
	Content io.Reader
}

// Result names the stored file and where it is served from.
type Result struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Options configures a Service.
type Options struct {
	Dir      string
	MaxBytes int64
	Now      func() time.Time
	Logger   zerolog.Logger
}

// Service writes uploads below Dir and updates the user row.
type Service struct {
	users    repository.UserStore
	dir      string
	maxBytes int64
	now      func() time.Time
	logger   zerolog.Logger
}

func NewService(users repository.UserStore, opts Options) *Service {
	s := &Service{
		users:    users,
		dir:      opts.Dir,
		maxBytes: opts.MaxBytes,
		now:      opts.Now,
		logger:   opts.Logger.With().Str("component", "profile").Logger(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maxBytes <= 0 {
		s.maxBytes = 5 << 20
	}
	return s
}

// SetProfilePicture stores up as the user's profile picture.
func (s *Service) SetProfilePicture(ctx context.Context, userID int64, up Upload) (Result, error) {
	return s.store(ctx, userID, domain.MediaProfilePicture, up)
}

// SetBackground stores up as the user's background photo.
func (s *Service) SetBackground(ctx context.Context, userID int64, up Upload) (Result, error) {
	return s.store(ctx, userID, domain.MediaBackground, up)
}

func (s *Service) store(ctx context.Context, userID int64, media domain.ProfileMedia, up Upload) (Result, error) {
	prefix, subdir, kind := layout(media)

	data, err := io.ReadAll(io.LimitReader(up.Content, s.maxBytes+1))
	if err != nil {
		metrics.RecordUpload(kind, "invalid")
		return Result{}, apperror.Validation("Failed to read upload", err)
	}
	if len(data) == 0 {
		metrics.RecordUpload(kind, "invalid")
		return Result{}, apperror.Validation("image is required", nil)
	}
	if int64(len(data)) > s.maxBytes {
		metrics.RecordUpload(kind, "invalid")
		return Result{}, apperror.Validation(fmt.Sprintf("image must be at most %d bytes", s.maxBytes), nil)
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		metrics.RecordUpload(kind, "invalid")
		return Result{}, apperror.Validation("image must be a JPEG, PNG, GIF or WebP file", nil)
	}

	ext := strings.ToLower(filepath.Ext(up.Name))
	if _, ok := allowedExts[ext]; !ok {
		ext = mt.Extension()
	}
	base := fmt.Sprintf("%s_%d_%d", prefix, userID, s.now().UnixMilli())

	dir := filepath.Join(s.dir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		metrics.RecordUpload(kind, "error")
		return Result{}, apperror.Store("Failed to store image", err)
	}
	filename, err := writeExclusive(dir, base, ext, data)
	if err != nil {
		metrics.RecordUpload(kind, "error")
		return Result{}, apperror.Store("Failed to store image", err)
	}
	target := filepath.Join(dir, filename)

	affected, err := s.users.SetMedia(ctx, userID, media, filename)
	if err != nil || affected == 0 {
		if rmErr := os.Remove(target); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn().Err(rmErr).Str("path", target).Msg("remove orphaned upload")
		}
		if err != nil {
			metrics.RecordUpload(kind, "error")
			s.logger.Error().Err(err).Int64("user_id", userID).Msg("record profile media failed")
			return Result{}, apperror.Store("Failed to update profile", err)
		}
		metrics.RecordUpload(kind, "not_found")
		return Result{}, apperror.NotFound("User not found")
	}

	metrics.RecordUpload(kind, "ok")
	s.logger.Info().Int64("user_id", userID).Str("file", filename).Str("mime", mt.String()).Msg("profile media stored")
	return Result{Filename: filename, URL: path.Join("/uploads", subdir, filename)}, nil
}

func layout(media domain.ProfileMedia) (prefix, subdir, kind string) {
	if media == domain.MediaBackground {
		return "bg", BackgroundDir, "background"
	}
	return "pfp", PictureDir, "profile_picture"
}

// maxNameAttempts bounds how many suffixed names writeExclusive tries when
// uploads land in the same millisecond.
const maxNameAttempts = 16

// writeExclusive creates base+ext, or base_N+ext if that name is taken, and
// never replaces an existing file.
func writeExclusive(dir, base, ext string, data []byte) (string, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := base + ext
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d%s", base, attempt, ext)
		}
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		_, err = f.Write(data)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(f.Name())
			return "", err
		}
		return name, nil
	}
	return "", fmt.Errorf("no free name for %s%s after %d attempts", base, ext, maxNameAttempts)
}
