// internal/pricing/pin.go
package pricing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost for the admin PIN.
const (
	pinTime    = 1
	pinMemory  = 64 * 1024
	pinThreads = 4
	pinKeyLen  = 32
	pinSaltLen = 16
)

// pinDigest is a salted PIN hash as kept in memory.
type pinDigest struct {
	hash string
	salt string
}

func derivePIN(pin string, salt []byte) []byte {
	return argon2.IDKey([]byte(pin), salt, pinTime, pinMemory, pinThreads, pinKeyLen)
}

// hashPIN salts and hashes the admin PIN.
func hashPIN(pin string) (pinDigest, error) {
	salt := make([]byte, pinSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return pinDigest{}, fmt.Errorf("read pin salt: %w", err)
	}
	enc := base64.StdEncoding
	return pinDigest{
		hash: enc.EncodeToString(derivePIN(pin, salt)),
		salt: enc.EncodeToString(salt),
	}, nil
}

// matches reports whether pin hashes to d.
func (d pinDigest) matches(pin string) (bool, error) {
	salt, err := base64.StdEncoding.DecodeString(d.salt)
	if err != nil {
		return false, fmt.Errorf("decode pin salt: %w", err)
	}
	want, err := base64.StdEncoding.DecodeString(d.hash)
	if err != nil {
		return false, fmt.Errorf("decode pin hash: %w", err)
	}
	return subtle.ConstantTimeCompare(want, derivePIN(pin, salt)) == 1, nil
}
