// Package crypto implements the credential cipher used to protect cached
// passwords at rest, plus helpers for generating secrets and tokens.
//
// The cipher is deliberately simple: an AES-128 key derived from the
// configured secret via MD5, CFB mode with a fresh random IV per call, and
// the result packed as base64(IV || ciphertext). There is no authentication
// tag; the cache store is a trusted boundary, not a hostile one.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// blockSize is both the AES block size and the IV length prefixed to every
// ciphertext.
const blockSize = aes.BlockSize

var (
	// ErrEncrypt indicates a failure while encrypting a credential.
	ErrEncrypt = errors.New("credential encryption failed")

	// ErrDecrypt indicates the encoded blob could not be decrypted: it is
	// truncated, not valid base64, or was produced with a different key.
	ErrDecrypt = errors.New("credential decryption failed")
)

// Cipher encrypts and decrypts credential strings with a key derived from a
// passphrase. A Cipher is safe for concurrent use.
type Cipher struct {
	key [md5.Size]byte
}

// New derives the symmetric key from the given passphrase and returns a
// ready-to-use Cipher. The derivation is a plain unsalted MD5 digest, which
// yields a stable 16-byte AES-128 key for any passphrase length.
func New(passphrase string) *Cipher {
	return &Cipher{key: md5.Sum([]byte(passphrase))}
}

// Encrypt encrypts plaintext and returns base64(IV || ciphertext).
// A fresh random IV is drawn on every call, so encrypting the same plaintext
// twice never yields the same output.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncrypt, err)
	}

	buf := make([]byte, blockSize+len(plaintext))
	iv := buf[:blockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncrypt, err)
	}

	cipher.NewCFBEncrypter(block, iv).XORKeyStream(buf[blockSize:], []byte(plaintext))

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt reverses Encrypt. It fails with ErrDecrypt if the encoded blob is
// shorter than one block or is not valid base64.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	if len(raw) < blockSize {
		return "", fmt.Errorf("%w: blob shorter than block size", ErrDecrypt)
	}

	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	iv, ciphertext := raw[:blockSize], raw[blockSize:]
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(plaintext, ciphertext)

	return string(plaintext), nil
}
