package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/exportify/internal/repositories"
	"github.com/desertthunder/exportify/internal/services"
	"github.com/desertthunder/exportify/internal/shared"
)

// Cookie names shared with the browser frontend.
const (
	nonceCookie    = "exportify-nonce"
	tokenCookie    = "exportify-token"
	loggedInCookie = "isLoggedIn"
)

// tokenCookieMaxAge matches the lifetime Spotify grants an access token.
const tokenCookieMaxAge = 3600

// SpotifyAPI is the slice of [services.SpotifyClient] the handlers consume.
type SpotifyAPI interface {
	AuthCodeURL(redirectURI, state string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*services.AccessToken, error)
	BasicToken(ctx context.Context) (*services.AccessToken, error)
	PlaylistTracks(ctx context.Context, token, playlistID string, offset int) (*services.TracksResult, error)
	Playlist(ctx context.Context, token, playlistID string) (*services.PlaylistDetails, error)
	UserPlaylists(ctx context.Context, token string) ([]services.UserPlaylist, error)
}

// Options contains the dependencies for creating a Server.
type Options struct {
	Config  *shared.Config
	Store   repositories.StateTokenStore
	Spotify SpotifyAPI
	Logger  *log.Logger
}

// Server wires the export service's handlers, middleware and routes.
type Server struct {
	config  *shared.Config
	store   repositories.StateTokenStore
	spotify SpotifyAPI
	logger  *log.Logger
	router  *Router
}

// New creates a Server and registers its routes.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: server requires a config", shared.ErrMissingConfig)
	}
	if opts.Store == nil || opts.Spotify == nil {
		return nil, fmt.Errorf("%w: server requires a state token store and a spotify client", shared.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	s := &Server{
		config:  opts.Config,
		store:   opts.Store,
		spotify: opts.Spotify,
		logger:  opts.Logger,
		router:  NewRouter(),
	}

	s.router.Use(RequestID, RequestLogger(s.logger))

	for path, handler := range map[string]http.HandlerFunc{
		"/api/login":             s.handleLogin,
		"/api/auth":              s.handleAuthCallback,
		"/api/logout":            s.handleLogout,
		"/api/basic":             s.handleBasicToken,
		"/api/getPlaylist":       s.handlePlaylist,
		"/api/getPlaylistTracks": s.handlePlaylistTracks,
		"/api/getUserPlaylists":  s.handleUserPlaylists,
	} {
		s.router.Handle(http.MethodGet, path, handler)
	}

	return s, nil
}

// ServeHTTP implements [http.Handler] by delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", httpServer.Addr, "base_url", s.config.Server.BaseURL)
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	}
}

// baseURL parses the configured public origin of the deployment.
func (s *Server) baseURL() (*url.URL, error) {
	parsed, err := url.ParseRequestURI(s.config.Server.BaseURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("%w: base_url %q is not a valid URL", shared.ErrInvalidConfig, s.config.Server.BaseURL)
	}
	return parsed, nil
}

// redirectURI is the callback target registered with Spotify. It must match
// byte-for-byte between the login redirect and the code exchange.
func (s *Server) redirectURI() (string, error) {
	base, err := s.baseURL()
	if err != nil {
		return "", err
	}
	return base.JoinPath("api", "auth").String(), nil
}

// errorBody is the uniform error response shape.
type errorBody struct {
	Message string `json:"message"`
}

// writeJSON serializes v into the response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response body", "error", err)
	}
}

// operationalError returns the uniform error body to the client and records
// the detailed cause in the server log only.
func (s *Server) operationalError(w http.ResponseWriter, status int, clientMessage, serverMessage string) {
	if serverMessage != "" {
		s.logger.Error(serverMessage)
	}
	s.writeJSON(w, status, errorBody{Message: clientMessage})
}

// RequestID attaches a request id header for log correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = shared.GenerateID()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs one line per request.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start),
				"request_id", w.Header().Get("X-Request-Id"),
			)
		})
	}
}

// requestToken selects the access token for a proxy request: the decrypted
// user token when the browser supplied one, otherwise a fresh basic token.
//
// A decryption failure is returned as-is so callers can distinguish a
// tampered cookie from the anonymous path.
func (s *Server) requestToken(ctx context.Context, r *http.Request) (*services.AccessToken, error) {
	if cookie, err := r.Cookie(tokenCookie); err == nil && cookie.Value != "" {
		plaintext, err := decryptTokenCookie(cookie.Value, s.config)
		if err != nil {
			return nil, err
		}
		return &services.AccessToken{AccessToken: plaintext, Scope: services.ScopeUser}, nil
	}

	return s.spotify.BasicToken(ctx)
}

// errIsDecryptFailure reports whether the token source failed on the cookie path.
func errIsDecryptFailure(err error) bool {
	return errors.Is(err, shared.ErrDecryptFailed)
}
