package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/desertthunder/exportify/internal/shared"
	"golang.org/x/crypto/scrypt"
)

const (
	keyLen   = 16 // AES-128
	ivLen    = aes.BlockSize
	ivB64Len = 24

	// scrypt cost parameters, matching crypto.scrypt defaults so existing
	// key/salt pairs keep deriving the same key.
	scryptN = 16384
	scryptR = 8
	scryptP = 1
)

// deriveKey stretches the configured secret into a 128-bit AES key.
func deriveKey(secretKey, salt string) ([]byte, error) {
	key, err := scrypt.Key([]byte(secretKey), []byte(salt), scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return key, nil
}

// EncryptToken encrypts an access token with AES-128-CBC under a key derived
// from (secretKey, salt) and returns the combined IV+ciphertext string.
//
// A fresh random IV is generated per call, so encrypting the same token twice
// yields different cipher strings.
func EncryptToken(token, secretKey, salt string) (string, error) {
	key, err := deriveKey(secretKey, salt)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	plaintext := pad([]byte(token))
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)

	return base64.StdEncoding.EncodeToString(iv) + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptToken reverses [EncryptToken], re-deriving the key and extracting the
// IV from the cipher string's fixed-length prefix.
//
// Any malformed input (short string, ciphertext that is not a whole number of
// cipher blocks, invalid padding) fails with [shared.ErrDecryptFailed] rather
// than returning garbage plaintext.
func DecryptToken(cipherString, secretKey, salt string) (string, error) {
	if len(cipherString) <= ivB64Len {
		return "", fmt.Errorf("%w: cipher string too short", shared.ErrDecryptFailed)
	}

	iv, err := base64.StdEncoding.DecodeString(cipherString[:ivB64Len])
	if err != nil || len(iv) != ivLen {
		return "", fmt.Errorf("%w: malformed IV prefix", shared.ErrDecryptFailed)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(cipherString[ivB64Len:])
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext", shared.ErrDecryptFailed)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not a multiple of the block size", shared.ErrDecryptFailed)
	}

	key, err := deriveKey(secretKey, salt)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := unpad(plaintext)
	if err != nil {
		return "", err
	}

	return string(unpadded), nil
}

// pad applies PKCS#7 padding up to the AES block size.
func pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad validates and strips PKCS#7 padding.
func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", shared.ErrDecryptFailed)
	}

	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", shared.ErrDecryptFailed)
	}

	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: invalid padding", shared.ErrDecryptFailed)
		}
	}

	return data[:len(data)-n], nil
}
