// Package crypt encrypts access tokens before they leave the server as cookies.
//
// Keys are derived from configured key material with scrypt and tokens are
// sealed with AES-CBC under a fresh IV per encryption. The cipher string
// format is the Base64 IV concatenated with the Base64 ciphertext; the IV
// segment has a fixed encoded length, so decryption splits by position.
// Every malformed-input path fails with [shared.ErrDecryptFailed] so callers
// can treat tampered cookies uniformly.
package crypt
