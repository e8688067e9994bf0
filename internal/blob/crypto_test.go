package blob

import (
	"bytes"
	"crypto/aes"
	"errors"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	sealer, err := NewSealer("test-secret")
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}

	cases := [][]byte{
		[]byte("short"),
		[]byte("exactly sixteen!"), // one full block, forces a padding block
		bytes.Repeat([]byte{0xAB}, 4096),
		{},
	}
	for _, plaintext := range cases {
		sealed, err := sealer.Seal(plaintext)
		if err != nil {
			t.Fatalf("Seal(%d bytes) error = %v", len(plaintext), err)
		}
		if len(sealed)%aes.BlockSize != 0 {
			t.Errorf("sealed length %d not block-aligned", len(sealed))
		}
		opened, err := sealer.Open(sealed)
		if err != nil {
			t.Fatalf("Open(%d bytes) error = %v", len(sealed), err)
		}
		if !bytes.Equal(opened, plaintext) {
			t.Errorf("round trip of %d bytes did not restore the plaintext", len(plaintext))
		}
	}
}

func TestSealRandomizesIV(t *testing.T) {
	sealer, err := NewSealer("test-secret")
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}

	first, _ := sealer.Seal([]byte("same input"))
	second, _ := sealer.Seal([]byte("same input"))
	if bytes.Equal(first, second) {
		t.Error("two seals of the same plaintext produced identical ciphertext")
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	sealer, _ := NewSealer("secret-one")
	other, _ := NewSealer("secret-two")

	sealed, err := sealer.Seal([]byte("confidential"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if opened, err := other.Open(sealed); err == nil && bytes.Equal(opened, []byte("confidential")) {
		t.Error("Open() with the wrong key recovered the plaintext")
	}
}

func TestOpenRejectsTruncatedCiphertext(t *testing.T) {
	sealer, _ := NewSealer("test-secret")

	for _, sealed := range [][]byte{nil, make([]byte, aes.BlockSize), make([]byte, aes.BlockSize+1)} {
		if _, err := sealer.Open(sealed); !errors.Is(err, ErrCiphertextTooShort) {
			t.Errorf("Open(%d bytes) error = %v, want ErrCiphertextTooShort", len(sealed), err)
		}
	}
}

func TestNewSealerRequiresSecret(t *testing.T) {
	if _, err := NewSealer(""); err == nil {
		t.Error("NewSealer(\"\") did not fail")
	}
}
