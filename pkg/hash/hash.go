package hash

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"golang.org/x/crypto/blake2b"
)

type HashAlgorithm string

const (
	SHA256     HashAlgorithm = "sha256"
	SHA512     HashAlgorithm = "sha512"
	BLAKE2b256 HashAlgorithm = "blake2b-256"
)

// ParseAlgorithm accepts only collision-resistant algorithms; md5 and sha1
// are refused.
func ParseAlgorithm(name string) (HashAlgorithm, error) {
	switch HashAlgorithm(strings.ToLower(strings.TrimSpace(name))) {
	case SHA256, "":
		return SHA256, nil
	case SHA512:
		return SHA512, nil
	case BLAKE2b256, "blake2b":
		return BLAKE2b256, nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", name)
	}
}

type Hasher interface {
	Calculate(data []byte) (string, error)
	CalculateReader(reader io.Reader) (string, error)
	Algorithm() HashAlgorithm
}

type ContentHasher struct {
	algorithm HashAlgorithm
}

func NewContentHasher(algorithm HashAlgorithm) *ContentHasher {
	return &ContentHasher{
		algorithm: algorithm,
	}
}

func (h *ContentHasher) Algorithm() HashAlgorithm {
	return h.algorithm
}

func (h *ContentHasher) Calculate(data []byte) (string, error) {
	hasher, err := h.getHasher()
	if err != nil {
		return "", err
	}

	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (h *ContentHasher) CalculateReader(reader io.Reader) (string, error) {
	hasher, err := h.getHasher()
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(hasher, reader); err != nil {
		return "", fmt.Errorf("failed to read data: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (h *ContentHasher) getHasher() (hash.Hash, error) {
	switch h.algorithm {
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	case BLAKE2b256:
		return blake2b.New256(nil)
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", h.algorithm)
	}
}
