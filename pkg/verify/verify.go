// Package verify checks downloaded files against an expected content digest.
package verify

import (
	"crypto/sha1" //nolint:gosec // launcher manifests publish SHA-1 digests
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"strings"

	pkgerrors "github.com/cperrin88/mcfetch/pkg/errors"
)

// Algorithm names a supported digest.
type Algorithm string

const (
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
)

// Detect picks the algorithm whose hex encoding has the length of digest.
func Detect(digest string) (Algorithm, error) {
	digest = Normalize(digest)
	if _, err := hex.DecodeString(digest); err != nil {
		return "", pkgerrors.Wrapf(pkgerrors.ErrUnsupportedDigest, "digest %q is not hex", digest)
	}
	switch len(digest) {
	case sha1.Size * 2:
		return SHA1, nil
	case sha256.Size * 2:
		return SHA256, nil
	case sha512.Size * 2:
		return SHA512, nil
	default:
		return "", pkgerrors.Wrapf(pkgerrors.ErrUnsupportedDigest, "digest of length %d", len(digest))
	}
}

func (a Algorithm) newHash() hash.Hash {
	switch a {
	case SHA256:
		return sha256.New()
	case SHA512:
		return sha512.New()
	default:
		return sha1.New() //nolint:gosec
	}
}

// Normalize lowercases and trims a hex digest.
func Normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Sum returns the hex digest of the file at path.
func Sum(path string, algo Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", pkgerrors.Wrapf(pkgerrors.ErrFileNotFound, "open for digest %s", path)
		}
		return "", pkgerrors.Wrap(err, "open for digest")
	}
	defer func() { _ = f.Close() }()

	h := algo.newHash()
	if _, err := io.Copy(h, f); err != nil {
		return "", pkgerrors.Wrap(err, "hashing")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File reports whether the content of path hashes to expected. The algorithm
// is the one expected was produced with, inferred from its length.
func File(path, expected string) (bool, error) {
	algo, err := Detect(expected)
	if err != nil {
		return false, err
	}
	got, err := Sum(path, algo)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(Normalize(expected))) == 1, nil
}
