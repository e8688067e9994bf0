package blob

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// Sealing errors
var (
	ErrCiphertextTooShort = errors.New("ciphertext shorter than one block")
	ErrInvalidPadding     = errors.New("invalid ciphertext padding")
)

// Sealer encrypts document payloads with AES-256-CBC. The key is derived from
// a configured secret with scrypt; the random IV is prepended to the
// ciphertext so each sealed payload is self-contained.
type Sealer struct {
	key []byte
}

// NewSealer derives the AES key from the secret.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is required")
	}
	key, err := scrypt.Key([]byte(secret), []byte("salt"), 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts the plaintext and returns IV-prefixed ciphertext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	padded := pad(plaintext, aes.BlockSize)
	sealed := make([]byte, aes.BlockSize+len(padded))
	copy(sealed, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(sealed[aes.BlockSize:], padded)
	return sealed, nil
}

// Open decrypts an IV-prefixed ciphertext produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < 2*aes.BlockSize || len(sealed)%aes.BlockSize != 0 {
		return nil, ErrCiphertextTooShort
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	iv := sealed[:aes.BlockSize]
	plaintext := make([]byte, len(sealed)-aes.BlockSize)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, sealed[aes.BlockSize:])
	return unpad(plaintext, aes.BlockSize)
}

// pad applies PKCS#7 padding.
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips PKCS#7 padding.
func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
