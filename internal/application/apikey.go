package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrInvalidAPIKey is returned when a presented key does not match the stored hash.
	ErrInvalidAPIKey = errors.New("application: invalid api key")
	// ErrInvalidKeyHash is returned when a stored hash cannot be parsed.
	ErrInvalidKeyHash = errors.New("application: invalid api key hash format")
	// ErrIncompatibleKeyVersion is returned for hashes produced by another argon2 version.
	ErrIncompatibleKeyVersion = errors.New("application: incompatible api key hash version")
)

// Argon2idParams tunes the argon2id key derivation.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams is used by crmctl hash-key.
var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// HashAPIKey derives an encoded argon2id hash for key.
func HashAPIKey(key string, params Argon2idParams) (string, error) {
	if key == "" {
		return "", fieldError("key", "key must not be empty")
	}
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(key), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	// $argon2id$v=19$m=...,t=...,p=...$salt$hash
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, params.Memory, params.Iterations, params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

type decodedHash struct {
	params Argon2idParams
	salt   []byte
	hash   []byte
}

func decodeKeyHash(encoded string) (decodedHash, error) {
	parts := strings.Split(strings.TrimSpace(encoded), "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return decodedHash{}, ErrInvalidKeyHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return decodedHash{}, fmt.Errorf("%w: %v", ErrInvalidKeyHash, err)
	}
	if version != argon2.Version {
		return decodedHash{}, ErrIncompatibleKeyVersion
	}

	var out decodedHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &out.params.Memory, &out.params.Iterations, &out.params.Parallelism); err != nil {
		return decodedHash{}, fmt.Errorf("%w: %v", ErrInvalidKeyHash, err)
	}

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return decodedHash{}, fmt.Errorf("%w: %v", ErrInvalidKeyHash, err)
	}
	if out.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return decodedHash{}, fmt.Errorf("%w: %v", ErrInvalidKeyHash, err)
	}
	out.params.SaltLength = uint32(len(out.salt))
	out.params.KeyLength = uint32(len(out.hash))
	return out, nil
}

func (d decodedHash) matches(key string) bool {
	comparison := argon2.IDKey([]byte(key), d.salt, d.params.Iterations, d.params.Memory, d.params.Parallelism, d.params.KeyLength)
	return subtle.ConstantTimeCompare(d.hash, comparison) == 1
}

// VerifyAPIKey checks key against an encoded hash.
func VerifyAPIKey(encoded, key string) error {
	decoded, err := decodeKeyHash(encoded)
	if err != nil {
		return err
	}
	if !decoded.matches(key) {
		return ErrInvalidAPIKey
	}
	return nil
}

// APIKeyVerifier authenticates requests against a single configured key hash.
type APIKeyVerifier struct {
	decoded decodedHash
}

// NewAPIKeyVerifier parses the hash once so malformed configuration fails at startup.
func NewAPIKeyVerifier(encoded string) (*APIKeyVerifier, error) {
	decoded, err := decodeKeyHash(encoded)
	if err != nil {
		return nil, err
	}
	return &APIKeyVerifier{decoded: decoded}, nil
}

// Verify reports ErrInvalidAPIKey when key does not match.
func (v *APIKeyVerifier) Verify(key string) error {
	if v == nil {
		return fmt.Errorf("APIKeyVerifier is nil")
	}
	if key == "" || !v.decoded.matches(key) {
		return ErrInvalidAPIKey
	}
	return nil
}
