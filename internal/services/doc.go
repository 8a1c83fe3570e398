// Package services implements the Spotify Web API client used by the export service.
//
// # Client
//
// [SpotifyClient] wraps golang.org/x/oauth2 for both token flows: the
// authorization code exchange for user tokens and client credentials for
// anonymous tokens. All Web API calls pass through a shared [rate.Limiter].
//
// # Pagination Under a Deadline
//
// [SpotifyClient.PlaylistTracks] follows the upstream pagination cursor
// cooperatively: before each page it checks the context deadline and stops
// early rather than starting a fetch it may not finish. In-flight page
// requests are never aborted, so a partial result always ends on a page
// boundary and carries the offset the next call should resume from.
//
// # Field Projections
//
// Responses are narrowed server-side with the fields query parameter, so
// the client only ever parses the projected shapes in this package.
//
// # Error Handling
//
// Non-2xx upstream responses become [UpstreamError], which unwraps to the
// shared sentinels ([shared.ErrTokenExpired], [shared.ErrNotFound],
// [shared.ErrRateLimited], [shared.ErrUpstream]) for errors.Is branching.
// [UpstreamStatus] recovers the numeric status when the branch needs it.
package services
