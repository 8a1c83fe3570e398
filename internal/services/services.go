package services

// TokenScope identifies the permission level of an access token.
type TokenScope string

const (
	// ScopeBasic is an app-level token from the client-credentials grant.
	ScopeBasic TokenScope = "basic"
	// ScopeUser is a user-level token from the authorization-code grant.
	ScopeUser TokenScope = "user"
)

// AccessToken is an opaque bearer credential plus its permission scope.
//
// Basic-scope tokens are ephemeral and owned by the request that created
// them. User-scope tokens are encrypted immediately on receipt and handed to
// the browser; the server only ever holds a decrypted copy transiently.
type AccessToken struct {
	AccessToken string     `json:"access_token"`
	Scope       TokenScope `json:"token_type"`
}

// TrackArtist is the projected artist object within a playlist track.
type TrackArtist struct {
	Name string `json:"name"`
}

// TrackAlbum is the projected album object within a playlist track.
type TrackAlbum struct {
	Name string `json:"name"`
}

// Track is the field projection of a playlist item used for exports.
type Track struct {
	Name    string        `json:"name"`
	Artists []TrackArtist `json:"artists"`
	Album   TrackAlbum    `json:"album"`
}

// playlistItem wraps a Track the way the playlist tracks endpoint nests it.
type playlistItem struct {
	Track Track `json:"track"`
}

// pagedTracks represents one upstream page of playlist tracks.
type pagedTracks struct {
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Next   *string        `json:"next"`
	Items  []playlistItem `json:"items"`
}

// TracksResult is the outcome of a playlist track fetch: either the complete
// remainder of the playlist, or a deadline-bounded partial prefix.
type TracksResult struct {
	Items []Track
	// Complete is false when the wall-clock budget expired before the
	// upstream cursor was exhausted.
	Complete bool
	// ResumeOffset is the client-facing continuation offset, meaningful only
	// when Complete is false. It is the starting offset plus the number of
	// items accumulated so far.
	ResumeOffset int
}

// ExternalURLs holds the public web link for a Spotify resource.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

// PlaylistOwner is the projected owner object on a playlist.
type PlaylistOwner struct {
	DisplayName  string       `json:"display_name"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// Image is an image resource. Width and height are optional upstream, so
// they stay pointers rather than defaulting to zero.
type Image struct {
	URL    string `json:"url"`
	Width  *int   `json:"width,omitempty"`
	Height *int   `json:"height,omitempty"`
}

// trackCount carries the only track field the playlist projections request.
type trackCount struct {
	Total int `json:"total"`
}

// PlaylistDetails is the field projection returned for a single playlist lookup.
type PlaylistDetails struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ExternalURLs ExternalURLs `json:"external_urls"`
	Owner        PlaylistOwner `json:"owner"`
	Images       []Image      `json:"images"`
	Tracks       trackCount   `json:"tracks"`
}

// UserPlaylist is the projected playlist object in a user's playlist listing.
type UserPlaylist struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	ExternalURLs ExternalURLs  `json:"external_urls"`
	Owner        PlaylistOwner `json:"owner"`
	Images       []Image       `json:"images"`
	Tracks       trackCount    `json:"tracks"`
}

// PlaylistExport bundles a playlist's details with its full track listing.
type PlaylistExport struct {
	Playlist PlaylistDetails `json:"playlist"`
	Tracks   []Track         `json:"tracks"`
}

// pagedPlaylists represents one upstream page of a user's playlists.
type pagedPlaylists struct {
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Next   *string        `json:"next"`
	Items  []UserPlaylist `json:"items"`
}
