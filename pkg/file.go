package dupsweep

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Digest is the raw output of the content hash
type Digest []byte

// Hex returns the lowercase hex encoding used for display and grouping
func (d Digest) Hex() string {
	if len(d) == 0 {
		return ""
	}
	return hex.EncodeToString(d)
}

// IsEmpty returns true when no digest has been computed
func (d Digest) IsEmpty() bool {
	return len(d) == 0
}

// Equal compares two digests byte for byte
func (d Digest) Equal(other Digest) bool {
	return len(d) > 0 && bytes.Equal(d, other)
}

// MarshalText encodes the digest as hex
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.Hex()), nil
}

// UnmarshalText decodes a hex digest
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDigest decodes a hex digest
func ParseDigest(s string) (Digest, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return Digest(b), nil
}

// FileRecord describes one regular file observed during a scan.
// Records are never modified after the scanner builds them.
type FileRecord struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"modified"`
	Digest   Digest    `json:"hash,omitempty"`
	Readable bool      `json:"readable"`
}

func newFileRecord(path string, info os.FileInfo) *FileRecord {
	return &FileRecord{
		Path:     path,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Readable: true,
	}
}

// withDigest returns a copy carrying the computed digest
func (r *FileRecord) withDigest(d Digest) *FileRecord {
	c := *r
	c.Digest = d
	return &c
}

// unreadable returns a copy marked unreadable
func (r *FileRecord) unreadable() *FileRecord {
	c := *r
	c.Readable = false
	c.Digest = nil
	return &c
}

// Name returns the base name of the file
func (r FileRecord) Name() string {
	return filepath.Base(r.Path)
}

// Extension returns the lowercased extension including the dot
func (r FileRecord) Extension() string {
	return strings.ToLower(filepath.Ext(r.Path))
}
