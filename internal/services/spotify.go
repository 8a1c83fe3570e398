package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/exportify/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyAPIURL   = "https://api.spotify.com/v1"
)

// spotifyAccessScope is the only user permission the export flow needs:
// reading private playlists so they can be listed and exported.
const spotifyAccessScope = "playlist-read-private"

const (
	// trackPageSize is the provider-side maximum for playlist items per page.
	trackPageSize = 100
	// playlistPageSize is the provider-side maximum for playlists per page.
	playlistPageSize = 50
)

const (
	trackFields        = "total,limit,next,offset,items(track(name,artists(name),album.name))"
	playlistFields     = "id,name,external_urls(spotify),owner(display_name,external_urls(spotify)),images(width,height,url),tracks(total)"
	userPlaylistFields = "total,limit,next,offset,items(id,name,external_urls(spotify),owner(display_name,external_urls(spotify)),images(width,height,url),tracks(total))"
)

// UpstreamError reports a non-2xx response from the Spotify API.
//
// It unwraps to the sentinel matching its status class so callers can branch
// with [errors.Is] without inspecting status codes.
type UpstreamError struct {
	StatusCode int
	Status     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("spotify API error: status %d %s", e.StatusCode, e.Status)
}

func (e *UpstreamError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return shared.ErrTokenExpired
	case http.StatusNotFound:
		return shared.ErrNotFound
	case http.StatusTooManyRequests:
		return shared.ErrRateLimited
	default:
		return shared.ErrUpstream
	}
}

// UpstreamStatus extracts the upstream HTTP status from an error chain.
// Returns 0 when the error did not originate from an upstream response.
func UpstreamStatus(err error) int {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode
	}
	return 0
}

// SpotifyClient talks to the Spotify accounts service and Web API.
//
// All upstream calls pass through a shared [rate.Limiter] so a single busy
// deployment stays under the developer app's request budget.
type SpotifyClient struct {
	clientID     string
	clientSecret string
	authURL      string
	tokenURL     string
	apiURL       string
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *log.Logger
}

// SpotifyClientOpts contains configuration options for creating a SpotifyClient.
//
// AuthURL, TokenURL and APIURL default to the public Spotify endpoints and
// exist so tests can point the client at a local stand-in.
type SpotifyClientOpts struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	APIURL       string
	HTTPClient   *http.Client
	RateLimit    float64
	Logger       *log.Logger
}

// NewSpotifyClient creates a new Spotify client with the given credentials.
func NewSpotifyClient(opts SpotifyClientOpts) (*SpotifyClient, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client id and secret are required", shared.ErrMissingCredentials)
	}

	if opts.AuthURL == "" {
		opts.AuthURL = spotifyAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.APIURL == "" {
		opts.APIURL = spotifyAPIURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &SpotifyClient{
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		authURL:      opts.AuthURL,
		tokenURL:     opts.TokenURL,
		apiURL:       opts.APIURL,
		httpClient:   opts.HTTPClient,
		limiter:      rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		logger:       opts.Logger,
	}, nil
}

// oauthConfig builds the authorization-code config for the given redirect URI.
func (c *SpotifyClient) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{spotifyAccessScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.authURL,
			TokenURL:  c.tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AuthCodeURL returns the provider authorization URL a login request redirects to.
func (c *SpotifyClient) AuthCodeURL(redirectURI, state string) string {
	return c.oauthConfig(redirectURI).AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for a user-scoped access token.
//
// The redirect URI must byte-for-byte match the one used when the code was
// issued or the provider rejects the exchange.
func (c *SpotifyClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*AccessToken, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.oauthConfig(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, wrapTokenError(err, "authorization code exchange")
	}

	return &AccessToken{AccessToken: token.AccessToken, Scope: ScopeUser}, nil
}

// BasicToken obtains an app-level token via the client-credentials grant.
//
// Basic tokens are generated per request and never persisted.
func (c *SpotifyClient) BasicToken(ctx context.Context) (*AccessToken, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	config := &clientcredentials.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		TokenURL:     c.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	token, err := config.Token(ctx)
	if err != nil {
		return nil, wrapTokenError(err, "client credentials request")
	}

	return &AccessToken{AccessToken: token.AccessToken, Scope: ScopeBasic}, nil
}

// wrapTokenError converts oauth2 retrieval failures into the upstream taxonomy.
func wrapTokenError(err error, operation string) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return fmt.Errorf("%s failed: %w", operation, &UpstreamError{
			StatusCode: retrieveErr.Response.StatusCode,
			Status:     retrieveErr.Response.Status,
		})
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}

// PlaylistTracks walks the playlist's cursor-paginated track listing.
//
// When ctx carries a deadline, the deadline is checked once per iteration
// before the next upstream call; an in-flight call is never aborted. On
// expiry the accumulated items are returned as a partial result with a
// continuation offset of startingOffset + itemsAccumulated. Resuming with
// that offset reproduces the same logical sequence as an uninterrupted pull,
// provided the playlist is not mutated between calls.
func (c *SpotifyClient) PlaylistTracks(ctx context.Context, token, playlistID string, offset int) (*TracksResult, error) {
	query := url.Values{}
	query.Set("fields", trackFields)
	query.Set("limit", strconv.Itoa(trackPageSize))
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	cursor := fmt.Sprintf("%s/playlists/%s/tracks?%s", c.apiURL, url.PathEscape(playlistID), query.Encode())

	deadline, bounded := ctx.Deadline()
	result := &TracksResult{Items: []Track{}}

	for {
		if bounded && !time.Now().Before(deadline) {
			result.ResumeOffset = offset + len(result.Items)
			c.logger.Info("fetch budget expired, returning partial track list",
				"playlist", playlistID, "items", len(result.Items), "resume_offset", result.ResumeOffset)
			return result, nil
		}

		var page pagedTracks
		// Cancellation is cooperative: the deadline gate above is the only
		// cutoff, so the page fetch runs on a detached context.
		if err := c.doRequest(context.WithoutCancel(ctx), token, cursor, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			result.Items = append(result.Items, item.Track)
		}

		if page.Next == nil {
			result.Complete = true
			return result, nil
		}
		cursor = *page.Next
	}
}

// Playlist retrieves the projected details of a single playlist.
func (c *SpotifyClient) Playlist(ctx context.Context, token, playlistID string) (*PlaylistDetails, error) {
	query := url.Values{}
	query.Set("fields", playlistFields)
	endpoint := fmt.Sprintf("%s/playlists/%s?%s", c.apiURL, url.PathEscape(playlistID), query.Encode())

	var playlist PlaylistDetails
	if err := c.doRequest(ctx, token, endpoint, &playlist); err != nil {
		return nil, err
	}

	return &playlist, nil
}

// UserPlaylists retrieves every playlist saved by the token's user, following
// the upstream cursor to exhaustion. The listing is small enough that no
// fetch budget applies.
func (c *SpotifyClient) UserPlaylists(ctx context.Context, token string) ([]UserPlaylist, error) {
	query := url.Values{}
	query.Set("fields", userPlaylistFields)
	query.Set("limit", strconv.Itoa(playlistPageSize))
	cursor := fmt.Sprintf("%s/me/playlists?%s", c.apiURL, query.Encode())

	playlists := []UserPlaylist{}
	for {
		var page pagedPlaylists
		if err := c.doRequest(ctx, token, cursor, &page); err != nil {
			return nil, err
		}

		playlists = append(playlists, page.Items...)

		if page.Next == nil {
			return playlists, nil
		}
		cursor = *page.Next
	}
}

// doRequest performs an authenticated GET against the given absolute URL.
func (c *SpotifyClient) doRequest(ctx context.Context, token, endpoint string, result any) error {
	if token == "" {
		return fmt.Errorf("%w: no access token available", shared.ErrNotAuthenticated)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
