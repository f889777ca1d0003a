package dupsweep

import (
	"testing"
	"time"
)

func selectorGroup(base time.Time) *DuplicateGroup {
	return &DuplicateGroup{
		Digest: Digest{0xaa},
		Size:   10,
		Files: []FileRecord{
			{Path: "/d/c", Size: 10, ModTime: base.Add(2 * time.Hour), Readable: true},
			{Path: "/d/b", Size: 10, ModTime: base, Readable: true},
			{Path: "/d/a", Size: 10, ModTime: base.Add(time.Hour), Readable: true},
			{Path: "/d/0", Size: 10, ModTime: base.Add(2 * time.Hour), Readable: true},
		},
	}
}

func TestOriginalSelectorPolicies(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		policy   string
		original string
		order    []string
	}{
		{KeepOldest, "/d/b", []string{"/d/b", "/d/a", "/d/0", "/d/c"}},
		{KeepNewest, "/d/0", []string{"/d/0", "/d/c", "/d/a", "/d/b"}},
		{KeepPath, "/d/0", []string{"/d/0", "/d/a", "/d/b", "/d/c"}},
	}

	for _, tc := range testCases {
		t.Run(tc.policy, func(t *testing.T) {
			selector, err := NewOriginalSelector(tc.policy)
			if err != nil {
				t.Fatalf("NewOriginalSelector failed: %v", err)
			}

			group := selectorGroup(base)
			if got := selector.SelectOriginal(group).Path; got != tc.original {
				t.Errorf("Expected SelectOriginal %s, got %s", tc.original, got)
			}

			selector.Arrange(group)
			if group.Original != tc.original {
				t.Errorf("Expected original %s, got %s", tc.original, group.Original)
			}
			for i, path := range tc.order {
				if group.Files[i].Path != path {
					t.Errorf("Position %d: expected %s, got %s", i, path, group.Files[i].Path)
				}
			}
		})
	}
}

func TestOriginalSelectorTieBreaksByPath(t *testing.T) {
	mtime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	group := &DuplicateGroup{
		Files: []FileRecord{
			{Path: "/z", ModTime: mtime},
			{Path: "/m", ModTime: mtime},
			{Path: "/a", ModTime: mtime},
		},
	}

	for _, policy := range []string{KeepOldest, KeepNewest, KeepPath} {
		selector, _ := NewOriginalSelector(policy)
		if got := selector.SelectOriginal(group).Path; got != "/a" {
			t.Errorf("Policy %s: expected /a on a tie, got %s", policy, got)
		}
	}
}

func TestOriginalSelectorDefaultsAndErrors(t *testing.T) {
	selector, err := NewOriginalSelector("")
	if err != nil {
		t.Fatalf("Expected empty policy to default, got %v", err)
	}
	if selector.Policy() != KeepOldest {
		t.Errorf("Expected default policy oldest, got %s", selector.Policy())
	}
	if selector.SuggestionReason() != "duplicate of older file" {
		t.Errorf("Unexpected reason %q", selector.SuggestionReason())
	}

	if _, err := NewOriginalSelector("largest"); err == nil {
		t.Error("Expected error for unknown policy")
	}
}

func TestDeletionTargetsExcludeOriginal(t *testing.T) {
	selector, _ := NewOriginalSelector(KeepOldest)
	group := selectorGroup(time.Now())
	selector.Arrange(group)

	targets := group.DeletionTargets()
	if len(targets) != len(group.Files)-1 {
		t.Fatalf("Expected %d targets, got %d", len(group.Files)-1, len(targets))
	}
	for _, target := range targets {
		if target.Path == group.Original {
			t.Errorf("Original %s listed as a deletion target", group.Original)
		}
	}

	original, err := group.OriginalRecord()
	if err != nil || original.Path != group.Original {
		t.Errorf("Expected OriginalRecord %s, got %s (%v)", group.Original, original.Path, err)
	}

	unarranged := selectorGroup(time.Now())
	if targets := unarranged.DeletionTargets(); targets != nil {
		t.Errorf("Expected no targets without an original, got %v", targets)
	}
}
