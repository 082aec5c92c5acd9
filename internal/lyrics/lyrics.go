// Lyrics lookup [Provider] implementation for lrclib.net.
//
// The lrclib /api/get endpoint matches a single track by artist, title,
// album, and duration. Responses carry both synced (timestamped) and plain
// lyrics; synced text is preferred when present.
package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lrx/internal/metadata"
	"github.com/desertthunder/lrx/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultEndpoint  = "https://lrclib.net/api/get"
	defaultUserAgent = "lrx/0.3.0 (+https://github.com/desertthunder/lrx)"
	defaultTimeout   = 10 * time.Second
)

// Provider performs a single lyrics lookup for a song.
type Provider interface {
	// Fetch returns lyrics text for the song. A miss surfaces as
	// shared.ErrLyricsNotFound; lookup failures (transport errors, bad
	// statuses, malformed bodies) are recovered locally and reported the
	// same way, so callers never distinguish a failed lookup from a
	// genuine miss.
	Fetch(ctx context.Context, song metadata.Song) (string, error)

	// Name returns the name of the provider (e.g., "lrclib")
	Name() string
}

// lookupResponse is the subset of the lrclib match body the client reads.
type lookupResponse struct {
	ID           int    `json:"id"`
	TrackName    string `json:"trackName"`
	ArtistName   string `json:"artistName"`
	AlbumName    string `json:"albumName"`
	Instrumental bool   `json:"instrumental"`
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
}

// Client implements Provider against the lrclib.net lookup endpoint.
type Client struct {
	endpoint   string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// ClientOpts contains configuration options for creating a Client.
type ClientOpts struct {
	Endpoint          string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables client-side pacing
	HTTPClient        *http.Client
	Logger            *log.Logger
}

// NewClient creates a lookup client, filling unset options with defaults.
func NewClient(opts ClientOpts) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = defaultEndpoint
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		endpoint:   opts.Endpoint,
		userAgent:  opts.UserAgent,
		timeout:    opts.Timeout,
		httpClient: opts.HTTPClient,
		limiter:    limiter,
		logger:     opts.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "lrclib"
}

// Fetch performs one GET against the lookup endpoint.
func (c *Client) Fetch(ctx context.Context, song metadata.Song) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", c.notFound(song)
		}
	}

	query := url.Values{}
	query.Set("artist_name", song.Artist)
	query.Set("track_name", song.Title)
	query.Set("album_name", song.Album)
	query.Set("duration", strconv.Itoa(song.Duration))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("lyrics lookup failed", "artist", song.Artist, "title", song.Title, "error", err)
		return "", c.notFound(song)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			c.logger.Debug("no lyrics match", "artist", song.Artist, "title", song.Title)
		} else {
			c.logger.Error("lyrics lookup returned unexpected status", "artist", song.Artist, "title", song.Title, "status", resp.StatusCode)
		}
		return "", c.notFound(song)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.logger.Error("failed to decode lyrics response", "artist", song.Artist, "title", song.Title, "error", err)
		return "", c.notFound(song)
	}

	if body.SyncedLyrics != "" {
		return body.SyncedLyrics, nil
	}
	if body.PlainLyrics != "" {
		return body.PlainLyrics, nil
	}

	return "", c.notFound(song)
}

func (c *Client) notFound(song metadata.Song) error {
	return fmt.Errorf("%w: %s - %s", shared.ErrLyricsNotFound, song.Artist, song.Title)
}
