package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Params are the Argon2id cost parameters.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultParams follow the OWASP recommendation for Argon2id.
var DefaultParams = Params{Time: 3, Memory: 64 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

// hashParams is what HashPassword uses. Tests lower it.
var hashParams = DefaultParams

// HashPassword hashes a plaintext password with Argon2id and returns it in
// PHC string format: $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
func HashPassword(password string) (string, error) {
	return hashWith(password, hashParams)
}

func hashWith(password string, p Params) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password matches the PHC hash. The hash's
// own parameters are used, so hashes made under older costs still verify.
func VerifyPassword(password, encoded string) (bool, error) {
	salt, key, p, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	candidate := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(key))) //nolint:gosec // G115: key length fits uint32
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

// NeedsRehash reports whether encoded was made with parameters other than
// the current ones.
func NeedsRehash(encoded string) bool {
	_, key, p, err := decodePHC(encoded)
	if err != nil {
		return true
	}
	want := hashParams
	return p.Time != want.Time || p.Memory != want.Memory || p.Threads != want.Threads ||
		uint32(len(key)) != want.KeyLen //nolint:gosec // G115: key length fits uint32
}

func decodePHC(encoded string) (salt, key []byte, p Params, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" { //nolint:mnd // PHC has six $-separated parts
		return nil, nil, p, fmt.Errorf("%w: not a PHC string", ErrHashInvalid)
	}
	if parts[1] != "argon2id" {
		return nil, nil, p, fmt.Errorf("%w: unsupported algorithm %q", ErrHashInvalid, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version { //nolint:govet // shadow
		return nil, nil, p, fmt.Errorf("%w: unsupported version %q", ErrHashInvalid, parts[2])
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil { //nolint:govet // shadow
		return nil, nil, p, fmt.Errorf("%w: parsing parameters: %w", ErrHashInvalid, err)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, p, fmt.Errorf("%w: decoding salt: %w", ErrHashInvalid, err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, p, fmt.Errorf("%w: decoding hash: %w", ErrHashInvalid, err)
	}
	p.SaltLen = uint32(len(salt)) //nolint:gosec // G115: salt length fits uint32
	p.KeyLen = uint32(len(key))   //nolint:gosec // G115: key length fits uint32
	return salt, key, p, nil
}

// UseFastParams lowers the hashing cost for the rest of the process.
// Intended for tests of packages that create accounts.
func UseFastParams() {
	hashParams = Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}
}
