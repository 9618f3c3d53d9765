// Package spotify provides a player backend on top of the Spotify Web API.
package spotify

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/autoskip/internal/domain/track"
)

// Scopes are the OAuth scopes the player backend needs.
var Scopes = []string{
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
}

// playerAPI is the part of the Spotify client used by Client.
type playerAPI interface {
	PlayerCurrentlyPlaying(ctx context.Context, opts ...spotify.RequestOption) (*spotify.CurrentlyPlaying, error)
	Next(ctx context.Context) error
}

// Client is a Spotify player backend.
type Client struct {
	api          playerAPI
	market       string
	pollInterval time.Duration
	maxTries     uint
	retryDelay   time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
	PollInterval time.Duration
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	// Create authenticator with required scopes
	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(Scopes...),
	)

	// Create token from refresh token
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	// Get HTTP client with auto-refresh capability
	httpClient := auth.Client(ctx, token)

	return newClient(spotify.New(httpClient), cfg), nil
}

func newClient(api playerAPI, cfg Config) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Client{
		api:          api,
		market:       cfg.Market,
		pollInterval: cfg.PollInterval,
		maxTries:     3,
		retryDelay:   time.Second,
	}
}

// CurrentTrack returns the currently playing track. Nothing playing is
// reported as track.ErrNotReady.
func (c *Client) CurrentTrack(ctx context.Context) (track.Track, error) {
	var opts []spotify.RequestOption
	if c.market != "" {
		opts = append(opts, spotify.Market(c.market))
	}

	var result *spotify.CurrentlyPlaying
	err := c.retry(ctx, func() error {
		cp, err := c.api.PlayerCurrentlyPlaying(ctx, opts...)
		if err != nil {
			return err
		}
		result = cp
		return nil
	})
	if err != nil {
		return track.Null, errors.Mark(errors.Wrap(err, "failed to get currently playing"), track.ErrNotReady)
	}

	if result == nil || result.Item == nil {
		return track.Null, errors.Wrap(track.ErrNotReady, "nothing is playing")
	}
	return convertTrack(result.Item), nil
}

// Subscribe polls the currently playing track and calls fn whenever it
// differs from the previous poll. It returns when ctx is done.
func (c *Client) Subscribe(ctx context.Context, fn func(track.Track)) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	last := track.Null
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		t, err := c.CurrentTrack(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			zlog.Debug().Msgf("spotify: poll failed: %v", err)
			continue
		}
		if t == last {
			continue
		}
		last = t
		fn(t)
	}
}

// Skip advances playback to the next track. It makes a single attempt; the
// caller holds the dispatcher lock.
func (c *Client) Skip(ctx context.Context) error {
	if err := c.api.Next(ctx); err != nil {
		return errors.Wrap(err, "failed to skip track")
	}
	return nil
}

// convertTrack converts a Spotify FullTrack to domain Track.
func convertTrack(t *spotify.FullTrack) track.Track {
	var artist string
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}
	return track.New(t.Name, artist, float64(t.Popularity)/100)
}

// retry runs fn up to maxTries times, doubling the pause after each
// retryable failure.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err != nil && !isRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			zlog.Debug().Msgf("spotify: retrying in %v: %v", next, err)
		}),
	)
	return err
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}
