package dupsweep

import "strings"

// Hash type constants
const (
	HashTypeSHA256 uint16 = 2 // SHA-256 (32 bytes)
	HashTypeSHA512 uint16 = 3 // SHA-512 (64 bytes)
)

// Hash size constants
const (
	HashSizeSHA256 = 32 // SHA-256 hash size in bytes
	HashSizeSHA512 = 64 // SHA-512 hash size in bytes
)

// HashTypeFromName returns the hash type constant from a name (case-insensitive)
func HashTypeFromName(name string) (uint16, bool) {
	switch strings.ToLower(name) {
	case "sha256":
		return HashTypeSHA256, true
	case "sha512":
		return HashTypeSHA512, true
	default:
		return 0, false
	}
}

// Scan defaults
const (
	DefaultHashAlgorithm = "sha256"
	DefaultChunkSize     = 64 * 1024
	MinChunkSize         = 4 * 1024
	MaxChunkSize         = 16 * 1024 * 1024
	DefaultMaxFileSize   = 100 * 1024 * 1024
	DefaultHashWorkers   = 4
	DefaultDeleteWorkers = 4
	MaxWorkers           = 64
)

// Keep policies for original selection
const (
	KeepOldest = "oldest"
	KeepNewest = "newest"
	KeepPath   = "path"
)

// Deletion results
const (
	ResultDeleted = "deleted"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Deletion reasons shared between the executor and its callers
const (
	ReasonDryRun          = "dry run"
	ReasonDuplicateTarget = "duplicate target in request"
	ReasonVanished        = "file no longer exists"
	ReasonNotRegular      = "not a regular file"
	ReasonSymlink         = "path was replaced by a symlink"
	ReasonNoDirAccess     = "no write permission on containing directory"
	ReasonChangedOnDisk   = "file changed since scan"
	ReasonOriginalMissing = "original no longer present"
	ReasonOriginalChanged = "original changed since scan"
	ReasonOutsideRoot     = "path is outside the scan root"
	ReasonReplaced        = "file was replaced"
	ReasonCancelled       = "operation cancelled"
	ReasonEmptyPath       = "empty path"
)

// Debug flags understood by the engine
const (
	DebugScan   = "scan"
	DebugHash   = "hash"
	DebugDelete = "delete"
)
