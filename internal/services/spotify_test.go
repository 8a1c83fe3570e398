package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/exportify/internal/shared"
	tu "github.com/desertthunder/exportify/internal/testing"
)

func newTestClient(t *testing.T, opts SpotifyClientOpts) *SpotifyClient {
	t.Helper()

	if opts.ClientID == "" {
		opts.ClientID = "test_client_id"
	}
	if opts.ClientSecret == "" {
		opts.ClientSecret = "test_client_secret"
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 1000
	}

	client, err := NewSpotifyClient(opts)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

// trackUpstream serves a fixed number of track pages, following the Spotify
// offset/next pagination shape. firstPageDelay stalls the first response so
// deadline tests can expire the budget mid-pull deterministically.
type trackUpstream struct {
	pages          int
	perPage        int
	firstPageDelay time.Duration

	server   *httptest.Server
	requests int
}

func newTrackUpstream(t *testing.T, pages, perPage int, firstPageDelay time.Duration) *trackUpstream {
	t.Helper()

	u := &trackUpstream{pages: pages, perPage: perPage, firstPageDelay: firstPageDelay}
	u.server = httptest.NewServer(http.HandlerFunc(u.handle))
	t.Cleanup(u.server.Close)
	return u
}

func (u *trackUpstream) handle(w http.ResponseWriter, r *http.Request) {
	u.requests++

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset == 0 && u.firstPageDelay > 0 {
		time.Sleep(u.firstPageDelay)
	}

	items := make([]map[string]any, 0, u.perPage)
	for i := 0; i < u.perPage; i++ {
		items = append(items, map[string]any{
			"track": map[string]any{
				"name":    fmt.Sprintf("Song %03d", offset+i),
				"artists": []map[string]string{{"name": "Artist"}},
				"album":   map[string]string{"name": "Album"},
			},
		})
	}

	page := map[string]any{
		"total":  u.pages * u.perPage,
		"limit":  u.perPage,
		"offset": offset,
		"items":  items,
		"next":   nil,
	}
	if offset/u.perPage < u.pages-1 {
		page["next"] = fmt.Sprintf("%s/playlists/abc123/tracks?offset=%d", u.server.URL, offset+u.perPage)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

func TestNewSpotifyClient(t *testing.T) {
	t.Run("With Valid Credentials", func(t *testing.T) {
		client, err := NewSpotifyClient(SpotifyClientOpts{
			ClientID:     "test_client_id",
			ClientSecret: "test_client_secret",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client == nil {
			t.Fatal("expected client to be created")
		}
	})

	t.Run("Missing Credentials", func(t *testing.T) {
		_, err := NewSpotifyClient(SpotifyClientOpts{ClientID: "test_client_id"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestAuthCodeURL(t *testing.T) {
	client := newTestClient(t, SpotifyClientOpts{})

	authURL := client.AuthCodeURL("https://example.com/api/auth", "a1b2c3d4e5f60718")

	for _, fragment := range []string{
		"accounts.spotify.com",
		"response_type=code",
		"client_id=test_client_id",
		"scope=playlist-read-private",
		"state=a1b2c3d4e5f60718",
		"redirect_uri=",
	} {
		if !strings.Contains(authURL, fragment) {
			t.Errorf("auth URL should contain %q, got %s", fragment, authURL)
		}
	}
}

func TestTokenEndpoints(t *testing.T) {
	t.Run("BasicToken", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok || username != "test_client_id" || password != "test_client_secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "client_credentials" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"basic_token_value","token_type":"Bearer"}`)
		}))
		defer tokenServer.Close()

		client := newTestClient(t, SpotifyClientOpts{TokenURL: tokenServer.URL})

		token, err := client.BasicToken(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "basic_token_value" {
			t.Errorf("expected basic_token_value, got %s", token.AccessToken)
		}
		if token.Scope != ScopeBasic {
			t.Errorf("expected basic scope, got %s", token.Scope)
		}
	})

	t.Run("ExchangeCode", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if r.Form.Get("grant_type") != "authorization_code" ||
				r.Form.Get("code") != "auth_code_value" ||
				r.Form.Get("redirect_uri") != "https://example.com/api/auth" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"user_token_value","token_type":"Bearer"}`)
		}))
		defer tokenServer.Close()

		client := newTestClient(t, SpotifyClientOpts{TokenURL: tokenServer.URL})

		token, err := client.ExchangeCode(context.Background(), "auth_code_value", "https://example.com/api/auth")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "user_token_value" {
			t.Errorf("expected user_token_value, got %s", token.AccessToken)
		}
		if token.Scope != ScopeUser {
			t.Errorf("expected user scope, got %s", token.Scope)
		}
	})

	t.Run("Exchange Upstream Failure", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "server error", http.StatusInternalServerError)
		}))
		defer tokenServer.Close()

		client := newTestClient(t, SpotifyClientOpts{TokenURL: tokenServer.URL})

		_, err := client.ExchangeCode(context.Background(), "auth_code_value", "https://example.com/api/auth")
		if !errors.Is(err, shared.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
		if status := UpstreamStatus(err); status != http.StatusInternalServerError {
			t.Errorf("expected upstream status 500, got %d", status)
		}
	})
}

func TestPlaylistTracks(t *testing.T) {
	t.Run("Completeness", func(t *testing.T) {
		upstream := newTrackUpstream(t, 3, 4, 0)
		client := newTestClient(t, SpotifyClientOpts{APIURL: upstream.server.URL})

		result, err := client.PlaylistTracks(context.Background(), "token", "abc123", 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !result.Complete {
			t.Error("expected a complete result without deadline pressure")
		}
		if len(result.Items) != 12 {
			t.Fatalf("expected 12 items, got %d", len(result.Items))
		}
		for i, track := range result.Items {
			expected := fmt.Sprintf("Song %03d", i)
			if track.Name != expected {
				t.Errorf("item %d: expected %q, got %q", i, expected, track.Name)
			}
		}
		if upstream.requests != 3 {
			t.Errorf("expected 3 upstream calls, got %d", upstream.requests)
		}
	})

	t.Run("Resumability", func(t *testing.T) {
		// The first page stalls past the deadline, so the loop must stop
		// after one fetch and hand back a continuation offset.
		upstream := newTrackUpstream(t, 3, 4, 80*time.Millisecond)
		client := newTestClient(t, SpotifyClientOpts{APIURL: upstream.server.URL})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		partial, err := client.PlaylistTracks(ctx, "token", "abc123", 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if partial.Complete {
			t.Fatal("expected a partial result under deadline pressure")
		}
		if len(partial.Items) != 4 {
			t.Fatalf("expected page 1's 4 items, got %d", len(partial.Items))
		}
		if partial.ResumeOffset != 4 {
			t.Fatalf("expected resume offset 4, got %d", partial.ResumeOffset)
		}
		if upstream.requests != 1 {
			t.Errorf("expected exactly 1 upstream call before the deadline cut in, got %d", upstream.requests)
		}

		rest, err := client.PlaylistTracks(context.Background(), "token", "abc123", partial.ResumeOffset)
		if err != nil {
			t.Fatalf("expected no error on resume, got %v", err)
		}
		if !rest.Complete {
			t.Error("expected resumed pull to complete")
		}
		if len(rest.Items) != 8 {
			t.Fatalf("expected pages 2+3 (8 items), got %d", len(rest.Items))
		}

		combined := append(partial.Items, rest.Items...)
		for i, track := range combined {
			expected := fmt.Sprintf("Song %03d", i)
			if track.Name != expected {
				t.Errorf("item %d: expected %q, got %q", i, expected, track.Name)
			}
		}
	})

	t.Run("Expired Deadline Skips Upstream Entirely", func(t *testing.T) {
		upstream := newTrackUpstream(t, 1, 4, 0)
		client := newTestClient(t, SpotifyClientOpts{APIURL: upstream.server.URL})

		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()

		result, err := client.PlaylistTracks(ctx, "token", "abc123", 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Complete || len(result.Items) != 0 {
			t.Errorf("expected an empty partial result, got %+v", result)
		}
		if result.ResumeOffset != 10 {
			t.Errorf("expected resume offset 10, got %d", result.ResumeOffset)
		}
		if upstream.requests != 0 {
			t.Errorf("expected no upstream calls, got %d", upstream.requests)
		}
	})

	t.Run("Upstream Failure Aborts Without Partial Data", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestClient(t, SpotifyClientOpts{APIURL: server.URL})

		result, err := client.PlaylistTracks(context.Background(), "token", "abc123", 0)
		if !errors.Is(err, shared.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
		if result != nil {
			t.Error("expected no partial data on a hard upstream failure")
		}
	})
}

func TestPlaylist(t *testing.T) {
	t.Run("Projected Details", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.URL.Query().Get("fields"), "tracks(total)") {
				t.Errorf("expected field projection, got %q", r.URL.Query().Get("fields"))
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{
				"id": "abc123",
				"name": "Road Trip",
				"external_urls": {"spotify": "https://open.spotify.com/playlist/abc123"},
				"owner": {"display_name": "someone"},
				"images": [{"url": "https://img.example/cover.jpg"}],
				"tracks": {"total": 42}
			}`)
		}))
		defer server.Close()

		client := newTestClient(t, SpotifyClientOpts{APIURL: server.URL})

		playlist, err := client.Playlist(context.Background(), "token", "abc123")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if playlist.Name != "Road Trip" || playlist.Tracks.Total != 42 {
			t.Errorf("unexpected playlist: %+v", playlist)
		}
		if len(playlist.Images) != 1 || playlist.Images[0].Width != nil {
			t.Errorf("expected image without dimensions, got %+v", playlist.Images)
		}
	})

	t.Run("Status Mapping", func(t *testing.T) {
		for status, sentinel := range map[int]error{
			http.StatusUnauthorized:        shared.ErrTokenExpired,
			http.StatusNotFound:            shared.ErrNotFound,
			http.StatusTooManyRequests:     shared.ErrRateLimited,
			http.StatusInternalServerError: shared.ErrUpstream,
		} {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", status)
			}))

			client := newTestClient(t, SpotifyClientOpts{APIURL: server.URL})
			_, err := client.Playlist(context.Background(), "token", "abc123")
			if !errors.Is(err, sentinel) {
				t.Errorf("status %d: expected %v, got %v", status, sentinel, err)
			}
			server.Close()
		}
	})
}

func TestUserPlaylists(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer user_token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		page := map[string]any{
			"total":  3,
			"limit":  2,
			"offset": offset,
			"next":   nil,
		}
		if offset == 0 {
			page["items"] = []map[string]any{
				{"id": "p1", "name": "First", "tracks": map[string]int{"total": 5}},
				{"id": "p2", "name": "Second", "tracks": map[string]int{"total": 8}},
			}
			page["next"] = server.URL + "/me/playlists?offset=2"
		} else {
			page["items"] = []map[string]any{
				{"id": "p3", "name": "Third", "tracks": map[string]int{"total": 1}},
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	client := newTestClient(t, SpotifyClientOpts{APIURL: server.URL})

	playlists, err := client.UserPlaylists(context.Background(), "user_token")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(playlists) != 3 {
		t.Fatalf("expected 3 playlists, got %d", len(playlists))
	}
	if playlists[2].ID != "p3" {
		t.Errorf("expected pages concatenated in order, got %+v", playlists)
	}
}

func TestRequestFailures(t *testing.T) {
	t.Run("Transport Error", func(t *testing.T) {
		transport := tu.NewMockRoundTripper(nil, fmt.Errorf("connection reset"))
		client := newTestClient(t, SpotifyClientOpts{
			HTTPClient: &http.Client{Transport: transport},
		})

		_, err := client.Playlist(context.Background(), "token", "pl1")
		if err == nil {
			t.Fatal("expected error from failing transport")
		}
		if !strings.Contains(err.Error(), "request failed") {
			t.Errorf("expected transport error, got %v", err)
		}
	})

	t.Run("Unreadable Body", func(t *testing.T) {
		response := &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Body:       &tu.FCloser{},
		}
		client := newTestClient(t, SpotifyClientOpts{
			HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(response, nil)},
		})

		_, err := client.Playlist(context.Background(), "token", "pl1")
		if err == nil {
			t.Fatal("expected error from unreadable body")
		}
		if !strings.Contains(err.Error(), "failed to decode response") {
			t.Errorf("expected decode error, got %v", err)
		}
	})

	t.Run("Missing Token", func(t *testing.T) {
		client := newTestClient(t, SpotifyClientOpts{})

		_, err := client.Playlist(context.Background(), "", "pl1")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}
