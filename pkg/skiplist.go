package dupsweep

import (
	"strings"
	"unsafe"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// recordSkiplist keeps file records ordered by path. The node context holds
// the hex digest so grouping can read it without touching the record.
type recordSkiplist struct {
	skiplist *zcsl.ZeroCopySkiplist[FileRecord, string, string]
}

func newRecordSkiplist(maxLevels int) *recordSkiplist {
	if maxLevels < 8 {
		maxLevels = 16 // reasonable default
	}

	getKeyFromItem := func(rec *FileRecord) string {
		return rec.Path
	}

	getItemSize := func(rec *FileRecord) int {
		return int(unsafe.Sizeof(*rec)) + len(rec.Path) + len(rec.Digest)
	}

	return &recordSkiplist{
		skiplist: zcsl.MakeZeroCopySkiplist[FileRecord, string, string](
			maxLevels,
			getKeyFromItem,
			getItemSize,
			strings.Compare,
		),
	}
}

// Insert adds rec unless its path is already present. Returns false for a
// repeated path; the first record for a path wins.
func (rs *recordSkiplist) Insert(rec *FileRecord) bool {
	if existing, _ := rs.skiplist.Find(rec.Path); existing != nil {
		return false
	}
	return rs.skiplist.Insert(rec, rec.Digest.Hex())
}

// Find returns the record stored for path and its digest context
func (rs *recordSkiplist) Find(path string) (*FileRecord, string) {
	node, digest := rs.skiplist.Find(path)
	if node == nil {
		return nil, ""
	}
	return node.Item(), digest
}

// ForEach iterates records in path order until callback returns false
func (rs *recordSkiplist) ForEach(callback func(rec *FileRecord, digest string) bool) {
	for current := rs.skiplist.First(); current != nil; current = current.Next() {
		if !callback(current.Item(), current.Context()) {
			break
		}
	}
}

// Length returns the number of records
func (rs *recordSkiplist) Length() int {
	return rs.skiplist.Length()
}
