package persistence

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealer(t *testing.T) {
	if NewSealer("") != nil {
		t.Fatalf("empty secret should disable sealing")
	}
	s := NewSealer("secret")
	a, err := s.Seal([]byte("hello"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	b, _ := s.Seal([]byte("hello"))
	if bytes.Equal(a, b) {
		t.Fatalf("nonces should differ between seals")
	}
	plain, err := s.Open(a)
	if err != nil || string(plain) != "hello" {
		t.Fatalf("open: %q %v", plain, err)
	}
	a[len(a)-1] ^= 0xff
	if _, err := s.Open(a); !errors.Is(err, ErrSealedPayload) {
		t.Fatalf("tampered payload opened: %v", err)
	}
	if _, err := s.Open([]byte("short")); !errors.Is(err, ErrSealedPayload) {
		t.Fatalf("short payload opened: %v", err)
	}
}
