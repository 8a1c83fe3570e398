package server

import (
	"fmt"
	"net/http"

	"github.com/desertthunder/exportify/internal/crypt"
	"github.com/desertthunder/exportify/internal/shared"
)

const loginErrMessage = "Exportify had a problem while logging you into the Spotify API."

// handleAuthCallback completes the OAuth flow after the provider redirects
// back with (code, state).
//
// The steps run linearly and every failure is terminal for the request:
// validate configuration, validate the request, consume the stored
// (nonce, state) pair, exchange the code, encrypt the token, set cookies.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if s.config.Credentials.Spotify.ClientID == "" || s.config.Credentials.Spotify.ClientSecret == "" {
		s.operationalError(w, http.StatusInternalServerError, loginErrMessage,
			"spotify API id or secret could not be loaded")
		return
	}
	if s.config.Cipher.Key == "" || s.config.Cipher.Salt == "" {
		s.operationalError(w, http.StatusInternalServerError, loginErrMessage,
			"couldn't retrieve token encryption key details")
		return
	}

	nonce, err := r.Cookie(nonceCookie)
	if err != nil || nonce.Value == "" {
		s.operationalError(w, http.StatusBadRequest, "Bad request",
			"a request was made to the auth endpoint without a nonce cookie")
		return
	}

	code := r.URL.Query().Get("code")
	stateToken := r.URL.Query().Get("state")
	if code == "" || stateToken == "" {
		s.operationalError(w, http.StatusBadRequest, "Bad request",
			"a request was made to the auth endpoint without a code or state token")
		return
	}

	record, err := s.store.GetAndDelete(r.Context(), nonce.Value, stateToken)
	if record == nil {
		if err != nil {
			s.operationalError(w, http.StatusInternalServerError,
				"Exportify had an issue during your login request to Spotify.",
				fmt.Sprintf("error during state token lookup: %v", err))
			return
		}
		// Potential CSRF attempt or replayed callback.
		s.operationalError(w, http.StatusBadRequest, "Bad request",
			fmt.Sprintf("a state token couldn't be found for pair %q:%q", nonce.Value, stateToken))
		return
	}

	base, err := s.baseURL()
	if err != nil {
		s.operationalError(w, http.StatusInternalServerError,
			"Exportify had a problem during the Spotify login process",
			fmt.Sprintf("could not resolve deploy origin: %v", err))
		return
	}

	redirectURI, _ := s.redirectURI()
	token, err := s.spotify.ExchangeCode(r.Context(), code, redirectURI)
	if err != nil {
		s.operationalError(w, http.StatusInternalServerError,
			"Exportify had a problem during the Spotify login process",
			fmt.Sprintf("could not retrieve user-scoped access token from Spotify API: %v", err))
		return
	}

	cipherString, err := crypt.EncryptToken(token.AccessToken, s.config.Cipher.Key, s.config.Cipher.Salt)
	if err != nil {
		s.operationalError(w, http.StatusInternalServerError,
			"Exportify had a problem during the Spotify login process",
			fmt.Sprintf("could not encrypt user access token: %v", err))
		return
	}

	// The browser becomes the token's long-term holder; the server never
	// persists it.
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    cipherString,
		Domain:   base.Hostname(),
		Path:     "/api",
		MaxAge:   tokenCookieMaxAge,
		SameSite: http.SameSiteStrictMode,
		HttpOnly: true,
	})
	// Client-readable flag for frontend login state.
	http.SetCookie(w, &http.Cookie{
		Name:     loggedInCookie,
		Value:    "true",
		Domain:   base.Hostname(),
		Path:     "/",
		MaxAge:   tokenCookieMaxAge,
		SameSite: http.SameSiteStrictMode,
	})
	// Expire the nonce so the consumed login attempt can't be replayed.
	http.SetCookie(w, &http.Cookie{
		Name:     nonceCookie,
		Value:    "",
		Domain:   base.Hostname(),
		Path:     "/api",
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, base.String(), http.StatusFound)
}

// handleLogout expires the session cookies and sends the browser home.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	base, err := s.baseURL()
	if err != nil {
		s.operationalError(w, http.StatusInternalServerError,
			"Exportify had a problem logging you out.",
			fmt.Sprintf("could not resolve deploy origin: %v", err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Domain:   base.Hostname(),
		Path:     "/api",
		MaxAge:   -1,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     loggedInCookie,
		Value:    "false",
		Domain:   base.Hostname(),
		Path:     "/",
		MaxAge:   -1,
		SameSite: http.SameSiteStrictMode,
	})

	http.Redirect(w, r, base.String(), http.StatusFound)
}

// decryptTokenCookie recovers the plaintext access token from the encrypted
// cookie value.
func decryptTokenCookie(value string, config *shared.Config) (string, error) {
	return crypt.DecryptToken(value, config.Cipher.Key, config.Cipher.Salt)
}
