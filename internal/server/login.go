package server

import (
	"fmt"
	"net/http"

	"github.com/desertthunder/exportify/internal/shared"
)

// handleLogin starts the OAuth authorization-code flow.
//
// The browser supplies a nonce cookie; the server generates a state token,
// durably records the (nonce, state) pair and only then redirects to the
// provider. Without the stored pair, CSRF validation at callback time would
// be impossible, so a failed store write aborts the login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.config.Credentials.Spotify.ClientID == "" {
		s.operationalError(w, http.StatusInternalServerError,
			"Exportify had an issue generating your login request to Spotify.",
			"no Spotify API credentials configured for the login endpoint")
		return
	}

	redirectURI, err := s.redirectURI()
	if err != nil {
		s.operationalError(w, http.StatusInternalServerError,
			"Exportify had a problem during the Spotify login process",
			fmt.Sprintf("could not resolve deploy origin: %v", err))
		return
	}

	nonce, err := r.Cookie(nonceCookie)
	if err != nil || nonce.Value == "" {
		s.operationalError(w, http.StatusBadRequest, "Bad request",
			"a request was made to the login endpoint without a nonce cookie")
		return
	}

	stateToken, err := shared.GenerateStateToken()
	if err != nil {
		s.operationalError(w, http.StatusInternalServerError,
			"Exportify had an issue generating your login request to Spotify.",
			fmt.Sprintf("could not generate a state token: %v", err))
		return
	}

	// Housekeeping before the write keeps the table bounded without a
	// background job.
	if swept, err := s.store.DeleteExpired(r.Context(), s.config.Server.StateTokenExpiry()); err != nil {
		s.logger.Warn("failed to sweep expired state tokens", "error", err)
	} else if swept > 0 {
		s.logger.Debug("swept expired state tokens", "count", swept)
	}

	if err := s.store.Put(r.Context(), nonce.Value, stateToken); err != nil {
		s.operationalError(w, http.StatusInternalServerError,
			"Exportify had an issue generating your login request to Spotify.",
			fmt.Sprintf("could not store state token: %v", err))
		return
	}

	http.Redirect(w, r, s.spotify.AuthCodeURL(redirectURI, stateToken), http.StatusFound)
}
