package filestore

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T, secret string) *Store {
	t.Helper()

	return NewStore(t.TempDir(), []byte(secret), 15*time.Minute)
}

func TestSaveAndOpenRoundTrip(t *testing.T) {
	store := newTestStore(t, "secret")

	path := "LAB-2025-00001/photo.jpg"
	if err := store.Save(path, strings.NewReader("image-bytes")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	f, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Fatalf("expected %q, got %q", "image-bytes", data)
	}
}

func TestRejectsEscapingPaths(t *testing.T) {
	store := newTestStore(t, "secret")

	for _, path := range []string{"", "../escape.txt", "a/../../escape.txt", "/etc/passwd"} {
		if err := store.Save(path, strings.NewReader("x")); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("Save(%q): expected ErrInvalidPath, got %v", path, err)
		}
		if _, err := store.Open(path); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("Open(%q): expected ErrInvalidPath, got %v", path, err)
		}
		if _, err := store.SignPath(path, time.Now()); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("SignPath(%q): expected ErrInvalidPath, got %v", path, err)
		}
	}
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	store := newTestStore(t, "secret")

	path := "LAB-2025-00002/scan.stl"
	token, err := store.SignPath(path, time.Now())
	if err != nil {
		t.Fatalf("SignPath failed: %v", err)
	}

	got, err := store.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if got != path {
		t.Fatalf("expected path %q, got %q", path, got)
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	store := newTestStore(t, "secret")

	// Signed an hour ago with a 15 minute TTL.
	token, err := store.SignPath("LAB-2025-00003/photo.png", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("SignPath failed: %v", err)
	}

	if _, err := store.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for an expired token, got %v", err)
	}
}

func TestVerifyTokenRejectsForeignSignature(t *testing.T) {
	signer := newTestStore(t, "secret-a")
	verifier := newTestStore(t, "secret-b")

	token, err := signer.SignPath("LAB-2025-00004/photo.jpg", time.Now())
	if err != nil {
		t.Fatalf("SignPath failed: %v", err)
	}

	if _, err := verifier.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for a foreign signature, got %v", err)
	}
	if _, err := verifier.VerifyToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}
