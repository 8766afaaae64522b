// Package catalogfeed loads catalog movies from an upstream JSON feed or a
// local export of it.
package catalogfeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/truereview/internal/domain"
)

// ErrNotFound is returned when the upstream feed path does not exist.
var ErrNotFound = errors.New("catalogfeed: not found")

const releaseDateLayout = "2006-01-02"

// Batch is the outcome of one feed read.
type Batch struct {
	Movies  []domain.Movie
	Skipped int
}

// Source yields catalog movies.
type Source interface {
	Fetch(ctx context.Context) (Batch, error)
}

// HTTPClient reads the feed from <baseURL>/movies.
type HTTPClient struct {
	baseURL    *url.URL
	apiKey     string
	posterBase string
	client     *http.Client
	logger     zerolog.Logger
}

// HTTPOptions configures NewHTTPClient.
type HTTPOptions struct {
	APIKey string
	// PosterBase prefixes poster paths that are not absolute URLs.
	PosterBase string
	Timeout    time.Duration
	Logger     zerolog.Logger
}

func NewHTTPClient(baseURL string, opts HTTPOptions) (*HTTPClient, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse catalog feed url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("catalog feed url %q must be absolute", baseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:    parsed,
		apiKey:     opts.APIKey,
		posterBase: opts.PosterBase,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: opts.Logger.With().Str("component", "catalogfeed").Logger(),
	}, nil
}

// Fetch downloads and normalizes the whole feed.
func (c *HTTPClient) Fetch(ctx context.Context) (Batch, error) {
	endpoint := c.baseURL.JoinPath("movies")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Batch{}, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Batch{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		batch, err := Decode(resp.Body, c.posterBase)
		if err != nil {
			return Batch{}, err
		}
		c.logger.Info().Int("movies", len(batch.Movies)).Int("skipped", batch.Skipped).Msg("catalog feed fetched")
		return batch, nil
	case http.StatusNotFound:
		return Batch{}, ErrNotFound
	default:
		c.logger.Warn().Int("status", resp.StatusCode).Str("url", endpoint.String()).Msg("unexpected catalog feed status")
		return Batch{}, fmt.Errorf("catalogfeed: upstream returned %d", resp.StatusCode)
	}
}

// FileSource reads a feed export from disk.
type FileSource struct {
	Path       string
	PosterBase string
}

func (f FileSource) Fetch(ctx context.Context) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return Batch{}, fmt.Errorf("open catalog file: %w", err)
	}
	defer file.Close()
	return Decode(file, f.PosterBase)
}

type feedMovie struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	PosterURL   string `json:"posterUrl"`
	PosterPath  string `json:"posterPath"`
	ReleaseDate string `json:"releaseDate"`
}

type feedEnvelope struct {
	Movies []feedMovie `json:"movies"`
}

// MaxFeedBytes caps how much of a feed document Decode will read. The full
// upstream catalog export is a few megabytes.
const MaxFeedBytes = 32 << 20

// ErrFeedTooLarge is returned when a feed exceeds MaxFeedBytes.
var ErrFeedTooLarge = fmt.Errorf("catalogfeed: feed exceeds %d bytes", MaxFeedBytes)

// Decode reads a feed document, either a bare array of movies or an object with
// a "movies" array, and converts every usable record.
func Decode(r io.Reader, posterBase string) (Batch, error) {
	return decode(r, posterBase, MaxFeedBytes)
}

func decode(r io.Reader, posterBase string, limit int64) (Batch, error) {
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Batch{}, fmt.Errorf("read catalog feed: %w", err)
	}
	if int64(len(raw)) > limit {
		return Batch{}, ErrFeedTooLarge
	}

	var items []feedMovie
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &items); err != nil {
			return Batch{}, fmt.Errorf("decode catalog feed: %w", err)
		}
	} else {
		var env feedEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return Batch{}, fmt.Errorf("decode catalog feed: %w", err)
		}
		items = env.Movies
	}

	batch := Batch{Movies: make([]domain.Movie, 0, len(items))}
	seen := make(map[int64]int, len(items))
	for _, item := range items {
		movie, ok := convertToMovie(item, posterBase)
		if !ok {
			batch.Skipped++
			continue
		}
		// Later records for the same id replace earlier ones.
		if idx, dup := seen[movie.ID]; dup {
			batch.Movies[idx] = movie
			batch.Skipped++
			continue
		}
		seen[movie.ID] = len(batch.Movies)
		batch.Movies = append(batch.Movies, movie)
	}
	return batch, nil
}

func convertToMovie(item feedMovie, posterBase string) (domain.Movie, bool) {
	title := strings.TrimSpace(item.Title)
	if item.ID <= 0 || title == "" {
		return domain.Movie{}, false
	}
	released, err := time.Parse(releaseDateLayout, strings.TrimSpace(item.ReleaseDate))
	if err != nil {
		return domain.Movie{}, false
	}

	poster := strings.TrimSpace(item.PosterURL)
	if poster == "" {
		poster = strings.TrimSpace(item.PosterPath)
	}
	if poster != "" && posterBase != "" && !strings.Contains(poster, "://") {
		poster = strings.TrimRight(posterBase, "/") + "/" + strings.TrimLeft(poster, "/")
	}

	return domain.Movie{
		ID:          item.ID,
		Title:       title,
		PosterURL:   poster,
		ReleaseDate: released,
	}, true
}
