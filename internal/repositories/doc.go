// Package repositories implements SQLite persistence for the login flow's state tokens.
//
// [StateTokenRepository] stores (nonce, state token) pairs keyed as a
// composite, so concurrent login attempts from the same browser session
// cannot collide. Consumption is single-use: [StateTokenRepository.GetAndDelete]
// removes the pair with a single DELETE that returns the deleted row, so
// exactly one of any set of concurrent callers observes the record.
// Unconsumed pairs are swept by age via [StateTokenRepository.DeleteExpired].
package repositories
