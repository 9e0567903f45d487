package secrets

import (
	"errors"
	"strings"
	"testing"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestSealer(t *testing.T) {
	t.Parallel()

	t.Run("round trips a credential", func(t *testing.T) {
		t.Parallel()
		sealer, err := NewSealer(testKey)
		if err != nil {
			t.Fatalf("NewSealer: %v", err)
		}
		sealed, err := sealer.Seal("zoom://host-key/123456")
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		if strings.Contains(sealed, "host-key") {
			t.Fatal("sealed value leaks plaintext")
		}
		opened, err := sealer.Open(sealed)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if opened != "zoom://host-key/123456" {
			t.Fatalf("round trip mismatch: %q", opened)
		}
	})

	t.Run("rejects short keys", func(t *testing.T) {
		t.Parallel()
		if _, err := NewSealer("abcd"); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("rejects tampered ciphertext", func(t *testing.T) {
		t.Parallel()
		sealer, err := NewSealer(testKey)
		if err != nil {
			t.Fatalf("NewSealer: %v", err)
		}
		sealed, err := sealer.Seal("credential")
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		if _, err := sealer.Open(sealed[:len(sealed)-8] + "AAAAAAA="); !errors.Is(err, ErrCorruptCiphertext) {
			t.Fatalf("expected ErrCorruptCiphertext, got %v", err)
		}
		if _, err := sealer.Open("not base64!!"); !errors.Is(err, ErrCorruptCiphertext) {
			t.Fatalf("expected ErrCorruptCiphertext, got %v", err)
		}
	})
}
