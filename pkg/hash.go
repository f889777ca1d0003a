package dupsweep

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// HashAlgorithm represents a hash algorithm configuration
type HashAlgorithm struct {
	Name    string
	TypeID  uint16
	Size    int
	NewFunc func() hash.Hash
}

// GetHashAlgorithm returns the hash algorithm configuration for the given name
func GetHashAlgorithm(name string) (*HashAlgorithm, error) {
	switch strings.ToLower(name) {
	case "", "sha256":
		return &HashAlgorithm{
			Name:    "sha256",
			TypeID:  HashTypeSHA256,
			Size:    HashSizeSHA256,
			NewFunc: sha256.New,
		}, nil
	case "sha512":
		return &HashAlgorithm{
			Name:    "sha512",
			TypeID:  HashTypeSHA512,
			Size:    HashSizeSHA512,
			NewFunc: sha512.New,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", name)
	}
}

// HashStringToHexString calculates the hash of a string and returns it as a hex string
func HashStringToHexString(data string, algorithm *HashAlgorithm) string {
	hasher := algorithm.NewFunc()
	hasher.Write([]byte(data))
	return hex.EncodeToString(hasher.Sum(nil))
}

// Fingerprinter computes content digests by streaming a file through the
// configured hash in fixed-size chunks, so memory use does not depend on
// file size.
type Fingerprinter struct {
	algorithm   *HashAlgorithm
	chunkSize   int
	maxFileSize int64
}

// NewFingerprinter creates a fingerprinter. maxFileSize <= 0 disables the ceiling.
func NewFingerprinter(algorithm string, chunkSize int, maxFileSize int64) (*Fingerprinter, error) {
	alg, err := GetHashAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	if err := ValidateChunkSize(chunkSize); err != nil {
		return nil, err
	}
	return &Fingerprinter{
		algorithm:   alg,
		chunkSize:   chunkSize,
		maxFileSize: maxFileSize,
	}, nil
}

// Algorithm returns the hash in use
func (f *Fingerprinter) Algorithm() *HashAlgorithm {
	return f.algorithm
}

// Fingerprint hashes the file at path and returns the digest and the number
// of bytes read. Failures are *FileError values of kind io, permission,
// too_large or cancelled. The context is checked before every chunk read.
func (f *Fingerprinter) Fingerprint(ctx context.Context, path string) (Digest, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, classifyOSError(path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, classifyOSError(path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, 0, newFileError(KindIO, path, ErrNotRegular)
	}
	if f.maxFileSize > 0 && info.Size() > f.maxFileSize {
		return nil, 0, newFileError(KindTooLarge, path,
			fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, info.Size(), f.maxFileSize))
	}

	hasher := f.algorithm.NewFunc()
	buffer := make([]byte, f.chunkSize)
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return nil, total, newFileError(KindCancelled, path, err)
		}

		n, err := file.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
			total += int64(n)
			if f.maxFileSize > 0 && total > f.maxFileSize {
				return nil, total, newFileError(KindTooLarge, path,
					fmt.Errorf("%w: grew past %d bytes while reading", ErrTooLarge, f.maxFileSize))
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, total, classifyOSError(path, fmt.Errorf("failed to read from file: %w", err))
		}
	}

	if total != info.Size() {
		return nil, total, newFileError(KindIO, path,
			fmt.Errorf("%w: read %d bytes, expected %d", ErrChangedDuringRead, total, info.Size()))
	}

	return Digest(hasher.Sum(nil)), total, nil
}
