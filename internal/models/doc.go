// Package models defines the persisted domain entities of the export service.
//
// [StateToken] is the anti-CSRF record written during login and consumed on
// the OAuth callback. It carries its own validation so stores never persist
// a malformed token.
package models
