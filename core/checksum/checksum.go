// Package checksum computes datastream fixity values and reads external
// checksum manifests.
package checksum

import (
	"crypto/md5"  // #nosec G501 -- fixity only, not security
	"crypto/sha1" // #nosec G505 -- fixity only, not security
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

var ErrUnknownAlgorithm = errors.New("unknown checksum algorithm")

// Algorithm names a fixity algorithm as recorded in datastream profiles.
type Algorithm string

const (
	SHA256 Algorithm = "SHA-256"
	SHA1   Algorithm = "SHA-1"
	MD5    Algorithm = "MD5"
	BLAKE3 Algorithm = "BLAKE3"
)

// ParseAlgorithm accepts the canonical names and their dashless spellings.
func ParseAlgorithm(name string) (Algorithm, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", ""))
	switch normalized {
	case "", "SHA256":
		return SHA256, nil
	case "SHA1":
		return SHA1, nil
	case "MD5":
		return MD5, nil
	case "BLAKE3":
		return BLAKE3, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// Sum returns the lower-case hex digest of data.
func Sum(alg Algorithm, data []byte) (string, error) {
	switch alg {
	case SHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	case SHA1:
		sum := sha1.Sum(data) // #nosec G401
		return hex.EncodeToString(sum[:]), nil
	case MD5:
		sum := md5.Sum(data) // #nosec G401
		return hex.EncodeToString(sum[:]), nil
	case BLAKE3:
		sum := blake3.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
}

// Equal compares two hex digests ignoring case and surrounding space.
func Equal(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
