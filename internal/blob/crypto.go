package blob

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4
)

// ErrDecrypt is returned when a blob cannot be opened with the passphrase.
var ErrDecrypt = errors.New("decrypt blob")

// GenerateSalt returns 16 cryptographically random bytes.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a 32-byte AES-256 key from a passphrase and salt using Argon2id.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMem, argonPar, keySize)
}

// Seal encrypts plaintext with key and prefixes the salt the key was
// derived from. Output format: [16-byte salt][12-byte nonce][AES-256-GCM ciphertext]
func Seal(plaintext []byte, key, salt []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// Open reverses Seal. keyFor maps the embedded salt to the AES key.
func Open(data []byte, keyFor func(salt []byte) []byte) ([]byte, error) {
	if len(data) < saltSize+nonceSize {
		return nil, fmt.Errorf("%w: blob too small", ErrDecrypt)
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	ciphertext := data[saltSize+nonceSize:]

	gcm, err := newGCM(keyFor(salt))
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// Encrypted wraps a Store and encrypts every blob at rest.
// The derived key is cached per salt; Argon2id is only paid once per
// process for writes.
type Encrypted struct {
	inner      Store
	passphrase string

	mu   sync.Mutex
	salt []byte
	key  []byte
}

// NewEncrypted returns a Store that seals blobs before handing them to inner.
func NewEncrypted(inner Store, passphrase string) (*Encrypted, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase is required")
	}
	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	return &Encrypted{
		inner:      inner,
		passphrase: passphrase,
		salt:       salt,
		key:        DeriveKey(passphrase, salt),
	}, nil
}

func (e *Encrypted) keyFor(salt []byte) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bytes.Equal(salt, e.salt) {
		return e.key
	}
	// Adopt the stored salt so later saves skip the derivation.
	e.salt = append([]byte(nil), salt...)
	e.key = DeriveKey(e.passphrase, e.salt)
	return e.key
}

func (e *Encrypted) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := e.inner.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return Open(data, e.keyFor)
}

func (e *Encrypted) Save(ctx context.Context, key string, data []byte) error {
	e.mu.Lock()
	salt, k := e.salt, e.key
	e.mu.Unlock()

	sealed, err := Seal(data, k, salt)
	if err != nil {
		return err
	}
	return e.inner.Save(ctx, key, sealed)
}
