package dupsweep

import (
	"context"
	"os"
)

// FileStatus represents the state of a scanned file on disk now
type FileStatus int

const (
	StatusUnchanged FileStatus = iota
	StatusModified
	StatusDeleted
)

func (s FileStatus) String() string {
	switch s {
	case StatusUnchanged:
		return "unchanged"
	case StatusModified:
		return "modified"
	case StatusDeleted:
		return "deleted"
	}
	return "unknown"
}

// StatusResult lists group members that no longer match a scan result
type StatusResult struct {
	Root        string   `json:"root"`
	Modified    []string `json:"modified"`
	Deleted     []string `json:"deleted"`
	Unchanged   int      `json:"unchanged"`
	StaleGroups int      `json:"stale_groups"`
	Complete    bool     `json:"complete"`
}

// Status re-checks every member of every group against the filesystem. A
// group is stale once any member was modified or deleted. The result is
// partial (Complete false) if ctx is cancelled.
func (r *ScanResult) Status(ctx context.Context) *StatusResult {
	sr := &StatusResult{
		Root:     r.Root,
		Modified: []string{},
		Deleted:  []string{},
	}

	for _, g := range r.Groups {
		if ctx.Err() != nil {
			return sr
		}

		stale := false
		for i := range g.Files {
			switch fileStatus(&g.Files[i]) {
			case StatusModified:
				sr.Modified = append(sr.Modified, g.Files[i].Path)
				stale = true
			case StatusDeleted:
				sr.Deleted = append(sr.Deleted, g.Files[i].Path)
				stale = true
			default:
				sr.Unchanged++
			}
		}
		if stale {
			sr.StaleGroups++
		}
	}

	sr.Complete = true
	return sr
}

// fileStatus compares a record with what is on disk now
func fileStatus(rec *FileRecord) FileStatus {
	info, err := os.Lstat(rec.Path)
	if err != nil {
		if isNotExist(err) {
			return StatusDeleted
		}
		// present but unreadable metadata counts as changed
		return StatusModified
	}
	if !info.Mode().IsRegular() || isFileModified(rec, info) {
		return StatusModified
	}
	return StatusUnchanged
}

// isFileModified checks if a file has been modified using fast metadata comparison
func isFileModified(rec *FileRecord, info os.FileInfo) bool {
	if rec.Size != info.Size() {
		return true
	}
	return !rec.ModTime.Equal(info.ModTime())
}

// HasChanges returns true if there are any changes
func (sr *StatusResult) HasChanges() bool {
	return len(sr.Modified) > 0 || len(sr.Deleted) > 0
}

// TotalChanges returns the total number of changed files
func (sr *StatusResult) TotalChanges() int {
	return len(sr.Modified) + len(sr.Deleted)
}
