// Package digest computes content digests for patch files.
//
// Digests are lowercase hex strings. The algorithm is chosen from the length of
// the digest a file is expected to match: 32 hex characters selects MD5, 64
// selects SHA-256. Hashing always streams the input in ChunkSize pieces, so
// large assets are hashed in bounded memory.
package digest

import (
	"bytes"
	"crypto/md5" //nolint:gosec // manifest digests are MD5, not a security boundary.
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// ChunkSize is the read size used while hashing.
const ChunkSize = 32 * 1024

// Algorithm identifies a digest algorithm.
type Algorithm int

const (
	// Unknown is returned for digests of an unsupported length.
	Unknown Algorithm = iota
	// MD5 produces 32 hex character digests.
	MD5
	// SHA256 produces 64 hex character digests.
	SHA256
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case MD5:
		return "md5"
	case SHA256:
		return "sha256"
	default:
		return "unknown"
	}
}

// HexLen returns the length of a hex digest produced by the algorithm.
func (a Algorithm) HexLen() int {
	switch a {
	case MD5:
		return md5.Size * 2
	case SHA256:
		return sha256.Size * 2
	default:
		return 0
	}
}

// New returns a fresh hash for the algorithm.
//
//nolint:ireturn // hash.Hash is the standard library contract.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil //nolint:gosec // see import
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("digest: unsupported algorithm %d", int(a))
	}
}

// AlgorithmFor picks the algorithm matching an expected hex digest.
// It returns Unknown when the digest has an unsupported length or is not hex.
func AlgorithmFor(expected string) Algorithm {
	if !IsHex(expected) {
		return Unknown
	}
	switch len(expected) {
	case md5.Size * 2:
		return MD5
	case sha256.Size * 2:
		return SHA256
	default:
		return Unknown
	}
}

// IsHex reports whether s is a non-empty string of hex digits in either case.
func IsHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Reader hashes r until EOF and returns the lowercase hex digest.
// A read failure is returned as an error, never as an empty digest.
func Reader(r io.Reader, alg Algorithm) (string, error) {
	h, err := alg.New()
	if err != nil {
		return "", err
	}

	buf := make([]byte, ChunkSize)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			// hash.Hash.Write never returns an error.
			_, _ = h.Write(buf[:n])
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", fmt.Errorf("digest: read: %w", rerr)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Bytes hashes an in-memory buffer.
func Bytes(data []byte, alg Algorithm) (string, error) {
	return Reader(bytes.NewReader(data), alg)
}

// Equal compares two hex digests ignoring case. Empty digests never match.
func Equal(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
