package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// Algorithm names an AEAD cipher.
type Algorithm string

const (
	AESGCM           Algorithm = "aes-gcm"
	ChaCha20Poly1305 Algorithm = "chacha20-poly1305"
)

// KeySize is the required key length for both algorithms.
const KeySize = 32

var (
	ErrInvalidKey       = fmt.Errorf("envelope: key must be %d bytes", KeySize)
	ErrMalformed        = errors.New("envelope: malformed data")
	ErrUnknownAlgorithm = errors.New("envelope: unknown algorithm")
)

// Preferred returns the algorithm Seal uses on this host.
func Preferred() Algorithm {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return AESGCM
	default:
		return ChaCha20Poly1305
	}
}

func newAEAD(alg Algorithm, key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	switch alg {
	case AESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case ChaCha20Poly1305:
		return chacha20poly1305.New(key)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownAlgorithm, alg)
}

// Seal encrypts plaintext under key with the preferred algorithm, prefixed
// by magic.
func Seal(magic, key, plaintext []byte) ([]byte, error) {
	return SealWith(Preferred(), magic, key, plaintext)
}

// SealWith is Seal with an explicit algorithm.
func SealWith(alg Algorithm, magic, key, plaintext []byte) ([]byte, error) {
	if len(alg) == 0 || len(alg) > 255 {
		return nil, fmt.Errorf("%w %q", ErrUnknownAlgorithm, alg)
	}
	aead, err := newAEAD(alg, key)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 0, len(magic)+1+len(alg))
	header = append(header, magic...)
	header = append(header, byte(len(alg)))
	header = append(header, alg...)

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	out := append(header, nonce...)
	return aead.Seal(out, nonce, plaintext, header), nil
}

// Open reverses Seal. It returns ErrMalformed when data does not start
// with magic or is truncated, and an authentication error when the key is
// wrong or the data was modified.
func Open(magic, key, data []byte) ([]byte, Algorithm, error) {
	if !bytes.HasPrefix(data, magic) || len(data) < len(magic)+1 {
		return nil, "", ErrMalformed
	}
	end := len(magic) + 1 + int(data[len(magic)])
	if len(data) < end {
		return nil, "", ErrMalformed
	}
	alg := Algorithm(data[len(magic)+1 : end])

	aead, err := newAEAD(alg, key)
	if err != nil {
		return nil, alg, err
	}
	rest := data[end:]
	if len(rest) < aead.NonceSize()+aead.Overhead() {
		return nil, alg, ErrMalformed
	}
	nonce, ciphertext := rest[:aead.NonceSize()], rest[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, data[:end])
	if err != nil {
		return nil, alg, fmt.Errorf("envelope: open %s: %w", alg, err)
	}
	return plaintext, alg, nil
}
