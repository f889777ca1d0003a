package dupsweep

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// DuplicateGroup is a set of two or more files with identical content
type DuplicateGroup struct {
	Digest      Digest
	Size        int64
	Files       []FileRecord // original first
	Original    string
	WastedBytes int64
}

// groupFile is the per-file view written in reports
type groupFile struct {
	FileRecord
	Name       string `json:"name"`
	Extension  string `json:"extension"`
	IsOriginal bool   `json:"is_original"`
}

type groupJSON struct {
	Hash        Digest      `json:"hash"`
	FileCount   int         `json:"file_count"`
	FileSize    int64       `json:"file_size"`
	TotalSize   int64       `json:"total_size"`
	WastedSpace int64       `json:"wasted_space"`
	Original    string      `json:"original"`
	Files       []groupFile `json:"files"`
}

// MarshalJSON writes the group with per-file name, extension and original flag
func (g DuplicateGroup) MarshalJSON() ([]byte, error) {
	out := groupJSON{
		Hash:        g.Digest,
		FileCount:   len(g.Files),
		FileSize:    g.Size,
		TotalSize:   g.Size * int64(len(g.Files)),
		WastedSpace: g.WastedBytes,
		Original:    g.Original,
		Files:       make([]groupFile, 0, len(g.Files)),
	}
	for _, f := range g.Files {
		out.Files = append(out.Files, groupFile{
			FileRecord: f,
			Name:       f.Name(),
			Extension:  f.Extension(),
			IsOriginal: f.Path == g.Original,
		})
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a group written by MarshalJSON
func (g *DuplicateGroup) UnmarshalJSON(data []byte) error {
	var in groupJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	g.Digest = in.Hash
	g.Size = in.FileSize
	g.Original = in.Original
	g.WastedBytes = in.WastedSpace
	g.Files = make([]FileRecord, 0, len(in.Files))
	for _, f := range in.Files {
		g.Files = append(g.Files, f.FileRecord)
	}
	return nil
}

// Stats summarises the duplicates found by a scan
type Stats struct {
	TotalFiles      int   `json:"total_files"`
	DuplicateGroups int   `json:"duplicate_groups"`
	DuplicateFiles  int   `json:"duplicate_files"`
	SpaceWasted     int64 `json:"space_wasted"`
}

// ScanResult is the complete, serialisable outcome of a scan
type ScanResult struct {
	Root       string               `json:"root"`
	Algorithm  string               `json:"algorithm"`
	KeepPolicy string               `json:"keep_policy"`
	TotalFiles int                  `json:"total_files"`
	TotalBytes int64                `json:"total_bytes"`
	Groups     []*DuplicateGroup    `json:"duplicate_groups"`
	Stats      Stats                `json:"stats"`
	Errors     map[string]string    `json:"errors"`
	ErrorKinds map[string]ErrorKind `json:"error_kinds"`
	Skipped    SkipCounts           `json:"skipped"`
	Cancelled  bool                 `json:"cancelled"`
	StartedAt  time.Time            `json:"started_at"`
	Duration   time.Duration        `json:"duration"`
}

// Suggestion proposes one redundant file for removal
type Suggestion struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Reason   string `json:"reason"`
	Original string `json:"original"`
	Hash     Digest `json:"hash"`
}

// Suggestions lists every non-original file, largest first then by path
func (r *ScanResult) Suggestions() []Suggestion {
	reason := suggestionReason(r.KeepPolicy)
	var out []Suggestion
	for _, g := range r.Groups {
		for _, f := range g.DeletionTargets() {
			out = append(out, Suggestion{
				Path:     f.Path,
				Size:     f.Size,
				Reason:   reason,
				Original: g.Original,
				Hash:     g.Digest,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// TotalReclaimable returns the bytes freed by removing every deletion target
func (r *ScanResult) TotalReclaimable() int64 {
	var total int64
	for _, g := range r.Groups {
		total += g.WastedBytes
	}
	return total
}

// DuplicateIndex groups fingerprinted records by digest. Each scan builds
// its own index.
type DuplicateIndex struct {
	records  *recordSkiplist
	selector *OriginalSelector
	log      zerolog.Logger
}

// NewDuplicateIndex creates an empty index that arranges groups with selector
func NewDuplicateIndex(selector *OriginalSelector, log zerolog.Logger) *DuplicateIndex {
	return &DuplicateIndex{
		records:  newRecordSkiplist(16),
		selector: selector,
		log:      log,
	}
}

// Add inserts a record. A path seen before is ignored and Add returns false.
func (di *DuplicateIndex) Add(rec *FileRecord) bool {
	return di.records.Insert(rec)
}

// Len returns the number of distinct paths held
func (di *DuplicateIndex) Len() int {
	return di.records.Length()
}

// Groups returns the duplicate groups currently in the index, sorted by
// wasted bytes descending and digest ascending
func (di *DuplicateIndex) Groups() []*DuplicateGroup {
	byDigest := make(map[string]*DuplicateGroup)
	var order []string

	di.records.ForEach(func(rec *FileRecord, digest string) bool {
		if rec.Size == 0 || digest == "" || !rec.Readable {
			return true
		}
		g, ok := byDigest[digest]
		if !ok {
			g = &DuplicateGroup{Digest: rec.Digest, Size: rec.Size}
			byDigest[digest] = g
			order = append(order, digest)
		}
		g.Files = append(g.Files, *rec)
		return true
	})

	groups := make([]*DuplicateGroup, 0, len(order))
	for _, digest := range order {
		g := byDigest[digest]
		if len(g.Files) < 2 {
			continue
		}
		di.selector.Arrange(g)
		g.WastedBytes = g.Size * int64(len(g.Files)-1)
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].WastedBytes != groups[j].WastedBytes {
			return groups[i].WastedBytes > groups[j].WastedBytes
		}
		return groups[i].Digest.Hex() < groups[j].Digest.Hex()
	})
	return groups
}

// Build indexes the scan output and assembles the result
func (di *DuplicateIndex) Build(out *ScanOutput) *ScanResult {
	for _, rec := range out.Records {
		if !di.Add(rec) {
			di.log.Debug().Str("path", rec.Path).Msg("Repeated path ignored")
		}
	}

	groups := di.Groups()

	result := &ScanResult{
		Root:       out.Root,
		Algorithm:  out.Algorithm,
		KeepPolicy: di.selector.Policy(),
		TotalFiles: out.TotalFiles,
		TotalBytes: out.TotalBytes,
		Groups:     groups,
		Errors:     make(map[string]string, len(out.Errors)),
		ErrorKinds: make(map[string]ErrorKind, len(out.Errors)),
		Skipped:    out.Skipped,
		Cancelled:  out.Cancelled,
		StartedAt:  out.Started,
		Duration:   out.Duration,
	}
	for path, fe := range out.Errors {
		result.Errors[path] = fe.Reason()
		result.ErrorKinds[path] = fe.Kind
	}

	result.Stats = Stats{
		TotalFiles:      out.TotalFiles,
		DuplicateGroups: len(groups),
	}
	for _, g := range groups {
		result.Stats.DuplicateFiles += len(g.Files) - 1
		result.Stats.SpaceWasted += g.WastedBytes
	}

	di.log.Info().Int("groups", result.Stats.DuplicateGroups).Int("duplicates", result.Stats.DuplicateFiles).
		Int64("wasted", result.Stats.SpaceWasted).Msg("Duplicate analysis complete")
	return result
}
