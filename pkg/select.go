package dupsweep

import (
	"fmt"
	"sort"
	"strings"
)

// OriginalSelector decides which member of a duplicate group is kept.
// Ties on modification time always fall back to the smallest path, so the
// choice is the same on every run.
type OriginalSelector struct {
	policy string
}

// NewOriginalSelector returns a selector for oldest, newest or path
func NewOriginalSelector(policy string) (*OriginalSelector, error) {
	if policy == "" {
		policy = KeepOldest
	}
	policy = strings.ToLower(policy)
	if err := ValidateKeepPolicy(policy); err != nil {
		return nil, err
	}
	return &OriginalSelector{policy: policy}, nil
}

// Policy returns the selection policy name
func (s *OriginalSelector) Policy() string {
	return s.policy
}

// less orders files so the preferred original comes first
func (s *OriginalSelector) less(a, b *FileRecord) bool {
	switch s.policy {
	case KeepNewest:
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}
	case KeepOldest:
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.Before(b.ModTime)
		}
	}
	return a.Path < b.Path
}

// SelectOriginal returns the member the policy keeps. The group must have
// at least one member.
func (s *OriginalSelector) SelectOriginal(group *DuplicateGroup) FileRecord {
	best := &group.Files[0]
	for i := 1; i < len(group.Files); i++ {
		if s.less(&group.Files[i], best) {
			best = &group.Files[i]
		}
	}
	return *best
}

// Arrange orders the members original-first and records the original
func (s *OriginalSelector) Arrange(group *DuplicateGroup) {
	if len(group.Files) == 0 {
		return
	}
	sort.SliceStable(group.Files, func(i, j int) bool {
		return s.less(&group.Files[i], &group.Files[j])
	})
	group.Original = group.Files[0].Path
}

// SuggestionReason describes why a non-original is redundant under this policy
func (s *OriginalSelector) SuggestionReason() string {
	return suggestionReason(s.policy)
}

func suggestionReason(policy string) string {
	switch policy {
	case KeepNewest:
		return "duplicate of newer file"
	case KeepPath:
		return "duplicate of file with earlier path"
	default:
		return "duplicate of older file"
	}
}

// DeletionTargets returns every member except the original. A group without
// an original yields nothing.
func (g *DuplicateGroup) DeletionTargets() []FileRecord {
	if g.Original == "" {
		return nil
	}
	targets := make([]FileRecord, 0, len(g.Files)-1)
	for _, f := range g.Files {
		if f.Path != g.Original {
			targets = append(targets, f)
		}
	}
	return targets
}

// OriginalRecord returns the record of the original member
func (g *DuplicateGroup) OriginalRecord() (FileRecord, error) {
	for _, f := range g.Files {
		if f.Path == g.Original {
			return f, nil
		}
	}
	return FileRecord{}, fmt.Errorf("group %s has no original", g.Digest.Hex())
}
