package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 2
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16
)

var ErrInvalidHash = errors.New("invalid password hash format")

func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword checks password against an argon2id hash, or a bcrypt hash
// carried over from accounts imported before argon2id was adopted.
func VerifyPassword(encoded, password string) (bool, error) {
	if isBcryptHash(encoded) {
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
		}
	}

	memory, timeCost, threads, salt, expected, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	expectedLen := len(expected)
	if uint64(expectedLen) > uint64(math.MaxUint32) {
		return false, ErrInvalidHash
	}
	// #nosec G115 -- bounded by explicit MaxUint32 check above.
	actual := argon2.IDKey([]byte(password), salt, timeCost, memory, threads, uint32(expectedLen))
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

// NeedsRehash reports whether encoded was produced by a legacy scheme or with
// weaker argon2 parameters than the current ones.
func NeedsRehash(encoded string) bool {
	if isBcryptHash(encoded) {
		return true
	}
	memory, timeCost, threads, _, _, err := decodeHash(encoded)
	if err != nil {
		return true
	}
	return memory < argonMemory || timeCost < argonTime || threads < argonThreads
}

func isBcryptHash(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") || strings.HasPrefix(encoded, "$2b$") || strings.HasPrefix(encoded, "$2y$")
}

func decodeHash(encoded string) (memory uint32, timeCost uint32, threads uint8, salt, hash []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return 0, 0, 0, nil, nil, ErrInvalidHash
	}
	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: params", ErrInvalidHash)
	}
	if memory == 0 || memory > 4*argonMemory || timeCost == 0 || timeCost > 4*argonTime || threads == 0 {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: params out of range", ErrInvalidHash)
	}
	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: salt", ErrInvalidHash)
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: payload", ErrInvalidHash)
	}
	return memory, timeCost, threads, salt, hash, nil
}
