package persistence

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrSealedPayload is returned when a payload cannot be opened, either
// because it was truncated or sealed under another secret.
var ErrSealedPayload = errors.New("persistence: sealed payload cannot be opened")

// Sealer encrypts and authenticates payloads with NaCl secretbox.
type Sealer struct {
	key [32]byte
}

// NewSealer derives a sealing key from secret.  It returns nil for an
// empty secret, which disables sealing.
func NewSealer(secret string) *Sealer {
	if secret == "" {
		return nil
	}
	s := &Sealer{}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("reservation-drafts/v1"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		// hkdf only fails after 255 blocks of output
		panic(err)
	}
	return s
}

// Seal returns nonce||box.
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &s.key), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrSealedPayload
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrSealedPayload
	}
	return plain, nil
}
