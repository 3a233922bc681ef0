// Package password hashes and verifies account passwords.
//
// Stored credentials have the form "salt&derivedKey": salt is a fresh random
// value per hash (hex encoded), derivedKey is the hex encoding of
// PBKDF2-HMAC-SHA512(password, salt). The plaintext never leaves this package.
package password

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/folio/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultIterations = 100_000
	DefaultKeyLen     = 64
	DefaultSaltLen    = 8

	separator = "&"
)

// Store is a PasswordCredentialStore. The zero value is not usable; use New.
type Store struct {
	iterations int
	keyLen     int
	saltLen    int
	rand       io.Reader
}

type Option func(*Store)

// WithRandReader replaces the salt source. Intended for tests.
func WithRandReader(r io.Reader) Option {
	return func(s *Store) { s.rand = r }
}

// WithIterations overrides the PBKDF2 iteration count. Values below the
// default are ignored.
func WithIterations(n int) Option {
	return func(s *Store) {
		if n >= DefaultIterations {
			s.iterations = n
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		iterations: DefaultIterations,
		keyLen:     DefaultKeyLen,
		saltLen:    DefaultSaltLen,
		rand:       rand.Reader,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// HashPassword returns a freshly salted "salt&derivedKey" string for plain.
// It fails with common.ErrHashing only when the salt cannot be generated.
func (s *Store) HashPassword(plain string) (string, error) {
	raw := make([]byte, s.saltLen)
	if _, err := io.ReadFull(s.rand, raw); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrHashing, err)
	}
	salt := hex.EncodeToString(raw)

	return salt + separator + hex.EncodeToString(s.derive(plain, salt)), nil
}

// VerifyPassword reports whether plain matches the stored credential.
// Malformed stored values never verify.
func (s *Store) VerifyPassword(plain, stored string) bool {
	salt, expectedHex, ok := strings.Cut(stored, separator)
	if !ok || salt == "" || expectedHex == "" {
		return false
	}

	expected, err := hex.DecodeString(expectedHex)
	if err != nil || len(expected) != s.keyLen {
		return false
	}

	return subtle.ConstantTimeCompare(s.derive(plain, salt), expected) == 1
}

// the hex salt string itself seeds the KDF, keeping stored values portable
// across implementations that treat the salt as text
func (s *Store) derive(plain, salt string) []byte {
	return pbkdf2.Key([]byte(plain), []byte(salt), s.iterations, s.keyLen, sha512.New)
}
