// Package server provides HTTP routing, middleware, and the playlist export API handlers.
//
// # Router Infrastructure
//
// The [Router] wraps [http.ServeMux] with method filtering and middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// # OAuth Flow
//
// Three handlers implement the authorization code flow with CSRF protection:
//
//  1. /api/login generates a state token, persists the (nonce, state) pair,
//     and redirects the browser to Spotify's consent page.
//  2. /api/auth consumes the stored pair on the provider's callback,
//     exchanges the code for a user token, and hands the token to the
//     browser as an encrypted cookie. A pair can be consumed exactly once,
//     so replayed or forged callbacks are rejected before any code exchange.
//  3. /api/logout expires the session cookies.
//
// The server never persists access tokens; the encrypted cookie is the only
// copy, and handlers decrypt it per request.
//
// # Export Endpoints
//
// /api/getPlaylistTracks follows upstream pagination under a wall-clock
// budget. When the budget runs out mid-playlist the response carries a
// continuation URL, so arbitrarily large playlists export across multiple
// calls without any server-side session state.
//
// /api/getPlaylist resolves a shared playlist URL, /api/getUserPlaylists
// lists the logged-in user's playlists, and /api/basic mints an anonymous
// client-credentials token.
//
// # Error Responses
//
// Every failure returns a JSON body with a single user-facing message field.
// Detailed causes go to the server log only.
package server
