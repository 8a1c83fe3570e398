package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/exportify/internal/services"
	"github.com/desertthunder/exportify/internal/shared"
)

const rateLimitedMessage = "Too many people are using Exportify right now... please try again shortly. We're extremely sorry!"

// TracksResponse is the client-facing result of a playlist track export.
//
// Next is present only when the fetch budget expired before the playlist was
// exhausted; it points back at this endpoint with a continuation offset.
type TracksResponse struct {
	Items []services.Track `json:"items"`
	Next  string           `json:"next,omitempty"`
}

// handlePlaylistTracks fetches a playlist's tracks, following upstream
// pagination until either the cursor is exhausted or the wall-clock budget
// runs out, in which case a resumable partial response is returned.
func (s *Server) handlePlaylistTracks(w http.ResponseWriter, r *http.Request) {
	if s.config.Credentials.Spotify.ClientID == "" || s.config.Credentials.Spotify.ClientSecret == "" {
		s.operationalError(w, http.StatusInternalServerError,
			"Exportify had a problem while retrieving your playlist details",
			"spotify API id or secret could not be loaded")
		return
	}

	playlistID := r.URL.Query().Get("playlistId")
	if playlistID == "" {
		s.operationalError(w, http.StatusBadRequest,
			"No Spotify playlist id was provided as a query param", "")
		return
	}

	offset := 0
	if rawOffset := r.URL.Query().Get("offset"); rawOffset != "" {
		parsed, err := strconv.Atoi(rawOffset)
		if err != nil || parsed < 0 {
			s.operationalError(w, http.StatusBadRequest,
				"The offset query param must be a non-negative integer", "")
			return
		}
		offset = parsed
	}

	token, err := s.requestToken(r.Context(), r)
	if err != nil {
		if errIsDecryptFailure(err) {
			s.operationalError(w, http.StatusInternalServerError,
				"Exportify had a problem authenticating with Spotify to export your playlist.",
				fmt.Sprintf("could not decrypt provided token cookie value: %v", err))
			return
		}
		s.operationalError(w, http.StatusInternalServerError,
			"Exportify had a problem while retrieving your playlist details",
			fmt.Sprintf("could not obtain an access token: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.Server.FetchBudget())
	defer cancel()

	result, err := s.spotify.PlaylistTracks(ctx, token.AccessToken, playlistID, offset)
	if err != nil {
		s.respondUpstreamError(w, err, "playlist tracks")
		return
	}

	response := TracksResponse{Items: result.Items}
	if !result.Complete {
		next, err := s.continuationURL(playlistID, result.ResumeOffset)
		if err != nil {
			s.operationalError(w, http.StatusInternalServerError,
				"Exportify had a problem while retrieving your playlist details",
				fmt.Sprintf("could not build continuation URL: %v", err))
			return
		}
		response.Next = next
	}

	s.writeJSON(w, http.StatusOK, response)
}

// continuationURL points a partial response's follow-up call back at this endpoint.
func (s *Server) continuationURL(playlistID string, offset int) (string, error) {
	base, err := s.baseURL()
	if err != nil {
		return "", err
	}

	next := base.JoinPath("api", "getPlaylistTracks")
	query := url.Values{}
	query.Set("playlistId", playlistID)
	query.Set("offset", strconv.Itoa(offset))
	next.RawQuery = query.Encode()
	return next.String(), nil
}

// handlePlaylist resolves a shared playlist URL to the playlist's details.
func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	if s.config.Credentials.Spotify.ClientID == "" || s.config.Credentials.Spotify.ClientSecret == "" {
		s.operationalError(w, http.StatusInternalServerError,
			"Exportify had a problem while retrieving your playlist details",
			"spotify API id or secret could not be loaded")
		return
	}

	rawURL := r.URL.Query().Get("playlistUrl")
	if rawURL == "" {
		s.operationalError(w, http.StatusBadRequest,
			"No query parameter called 'playlistUrl' was included with the request", "")
		return
	}

	playlistID, err := extractPlaylistID(rawURL)
	if err != nil {
		s.operationalError(w, http.StatusBadRequest,
			"A valid Spotify playlist URL was not provided", "")
		return
	}

	token, err := s.spotify.BasicToken(r.Context())
	if err != nil {
		s.respondUpstreamError(w, err, "basic token")
		return
	}

	playlist, err := s.spotify.Playlist(r.Context(), token.AccessToken, playlistID)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrTokenExpired):
			s.operationalError(w, http.StatusInternalServerError,
				"Exportify could not retrieve playlist information from Spotify API. Please try again shortly.",
				"basic access token expired during a request for playlist details")
		case errors.Is(err, shared.ErrRateLimited):
			s.operationalError(w, http.StatusInternalServerError, rateLimitedMessage,
				"spotify developer app is rate-limited while a user is trying to retrieve playlist details")
		case errors.Is(err, shared.ErrNotFound):
			s.operationalError(w, http.StatusBadRequest,
				"Could not find a playlist matching your provided Spotify URL.", "")
		default:
			s.operationalError(w, http.StatusInternalServerError,
				"Exportify could not retrieve playlist information from Spotify API",
				fmt.Sprintf("spotify API playlist request failed: %v", err))
		}
		return
	}

	s.writeJSON(w, http.StatusOK, playlist)
}

// extractPlaylistID validates a shared playlist link and splits out its id.
func extractPlaylistID(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: malformed playlist URL", shared.ErrBadRequest)
	}

	if parsed.Hostname() != "open.spotify.com" || !strings.HasPrefix(parsed.Path, "/playlist/") {
		return "", fmt.Errorf("%w: not a Spotify playlist URL", shared.ErrBadRequest)
	}

	id := strings.TrimPrefix(parsed.Path, "/playlist/")
	if id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("%w: missing playlist id", shared.ErrBadRequest)
	}

	return id, nil
}

// handleUserPlaylists lists every playlist of the logged-in user. It requires
// the encrypted user token cookie; there is no anonymous fallback.
func (s *Server) handleUserPlaylists(w http.ResponseWriter, r *http.Request) {
	if s.config.Cipher.Key == "" || s.config.Cipher.Salt == "" {
		s.operationalError(w, http.StatusInternalServerError, loginErrMessage,
			"couldn't retrieve token encryption key details")
		return
	}

	cookie, err := r.Cookie(tokenCookie)
	if err != nil || cookie.Value == "" {
		s.operationalError(w, http.StatusBadRequest,
			"This endpoint can't be used while you're not logged into Spotify via Exportify. Please log in with Spotify and try again.", "")
		return
	}

	accessToken, err := decryptTokenCookie(cookie.Value, s.config)
	if err != nil {
		s.operationalError(w, http.StatusInternalServerError,
			"Exportify had a problem authenticating with Spotify to get a list of your playlists.",
			fmt.Sprintf("could not decrypt provided token cookie value during call to /api/getUserPlaylists: %v", err))
		return
	}

	playlists, err := s.spotify.UserPlaylists(r.Context(), accessToken)
	if err != nil {
		s.respondUpstreamError(w, err, "user playlists")
		return
	}

	s.writeJSON(w, http.StatusOK, playlists)
}

// handleBasicToken obtains a client-credentials token and returns it to the caller.
func (s *Server) handleBasicToken(w http.ResponseWriter, r *http.Request) {
	token, err := s.spotify.BasicToken(r.Context())
	if err != nil {
		status := services.UpstreamStatus(err)
		s.logger.Error("error requesting Spotify API token", "status", status, "error", err)

		if status >= 400 && status < 500 {
			s.writeJSON(w, http.StatusInternalServerError, errorBody{
				Message: "An error occurred while Exportify was attempting communication with the Spotify API. It's not you, it's us...",
			})
			return
		}
		s.writeJSON(w, http.StatusInternalServerError, errorBody{
			Message: "An error occurred with the Spotify API, but Exportify appears to be working fine. Please try again shortly and it may be resolved.",
		})
		return
	}

	s.writeJSON(w, http.StatusOK, token)
}

// respondUpstreamError maps upstream failures onto the shared error taxonomy.
func (s *Server) respondUpstreamError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, shared.ErrRateLimited):
		s.operationalError(w, http.StatusInternalServerError, rateLimitedMessage,
			fmt.Sprintf("spotify developer app is rate-limited during %s", operation))
	case errors.Is(err, shared.ErrNotFound):
		s.operationalError(w, http.StatusBadRequest,
			"Could not find a matching resource on the Spotify API.", "")
	default:
		s.operationalError(w, http.StatusInternalServerError,
			"Exportify could not retrieve data from the Spotify API. Please try again shortly.",
			fmt.Sprintf("spotify API %s request failed: %v", operation, err))
	}
}
