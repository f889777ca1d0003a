package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	dupsweep "github.com/mattkeenan/dupsweep/pkg"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	keepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	sizeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

// shortHash truncates a hex digest for display
func shortHash(d dupsweep.Digest) string {
	h := d.Hex()
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printScanResult renders every duplicate group followed by a summary
func printScanResult(w io.Writer, result *dupsweep.ScanResult) {
	fmt.Fprintln(w, titleStyle.Render("Duplicate scan of "+result.Root))
	fmt.Fprintln(w, subtitleStyle.Render(fmt.Sprintf("%s, keep %s, %d files in %s",
		result.Algorithm, result.KeepPolicy, result.TotalFiles, result.Duration.Round(time.Millisecond))))
	fmt.Fprintln(w)

	for i, g := range result.Groups {
		header := fmt.Sprintf("Group %d  %s  %d x %s",
			i+1, shortHash(g.Digest), len(g.Files), dupsweep.FormatSize(g.Size))
		fmt.Fprintf(w, "%s  %s\n", titleStyle.Render(header),
			sizeStyle.Render(dupsweep.FormatSize(g.WastedBytes)+" wasted"))
		for _, f := range g.Files {
			if f.Path == g.Original {
				fmt.Fprintf(w, "  %s %s\n", keepStyle.Render("keep"), f.Path)
			} else {
				fmt.Fprintf(w, "  %s  %s\n", dangerStyle.Render("dup"), f.Path)
			}
		}
		fmt.Fprintln(w)
	}

	printScanSummary(w, result)
}

func printScanSummary(w io.Writer, result *dupsweep.ScanResult) {
	if len(result.Groups) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No duplicates found."))
	} else {
		fmt.Fprintf(w, "%s %d groups, %d redundant files, %s reclaimable\n",
			titleStyle.Render("Summary:"),
			result.Stats.DuplicateGroups, result.Stats.DuplicateFiles,
			sizeStyle.Render(dupsweep.FormatSize(result.Stats.SpaceWasted)))
	}

	s := result.Skipped
	skipped := []string{}
	for _, part := range []struct {
		n    int
		name string
	}{
		{s.Extension, "extension"}, {s.TooLarge, "too large"}, {s.Special, "special"},
		{s.Ignored, "ignored"}, {s.Empty, "empty"}, {s.UniqueSize, "unique size"},
	} {
		if part.n > 0 {
			skipped = append(skipped, fmt.Sprintf("%d %s", part.n, part.name))
		}
	}
	if len(skipped) > 0 {
		fmt.Fprintln(w, mutedStyle.Render("Skipped: "+strings.Join(skipped, ", ")))
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("%d files could not be processed:", len(result.Errors))))
		for _, path := range sortedKeys(result.Errors) {
			fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render(path+":"), result.Errors[path])
		}
	}
	if result.Cancelled {
		fmt.Fprintln(w, warningStyle.Render("Scan was interrupted, results are partial."))
	}
}

// printSuggestions lists deletion candidates, largest first
func printSuggestions(w io.Writer, result *dupsweep.ScanResult) {
	suggestions := result.Suggestions()
	if len(suggestions) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("Nothing to remove."))
		return
	}

	for _, s := range suggestions {
		fmt.Fprintf(w, "%10s  %s\n", sizeStyle.Render(dupsweep.FormatSize(s.Size)), s.Path)
		fmt.Fprintf(w, "%10s  %s\n", "", mutedStyle.Render(s.Reason+": "+s.Original))
	}
	fmt.Fprintf(w, "\n%s %d files, %s\n", titleStyle.Render("Reclaimable:"),
		len(suggestions), sizeStyle.Render(dupsweep.FormatSize(result.TotalReclaimable())))
}

// printDeletionReport shows each outcome and the totals
func printDeletionReport(w io.Writer, report *dupsweep.DeletionReport) {
	for _, o := range report.Outcomes {
		switch {
		case o.Deleted():
			fmt.Fprintf(w, "%s %s %s\n", dangerStyle.Render("deleted"), o.Path,
				mutedStyle.Render("("+dupsweep.FormatSize(o.Bytes)+")"))
		case o.Reason == dupsweep.ReasonDryRun:
			fmt.Fprintf(w, "%s %s %s\n", warningStyle.Render("would delete"), o.Path,
				mutedStyle.Render("("+dupsweep.FormatSize(o.Bytes)+")"))
		case o.Result == dupsweep.ResultSkipped:
			fmt.Fprintf(w, "%s %s %s\n", mutedStyle.Render("skipped"), o.Path, mutedStyle.Render(o.Reason))
		default:
			fmt.Fprintf(w, "%s %s %s\n", warningStyle.Render("failed"), o.Path, o.Reason)
		}
	}

	fmt.Fprintln(w)
	if report.DryRun {
		var wouldFree int64
		for _, o := range report.Outcomes {
			if o.Reason == dupsweep.ReasonDryRun {
				wouldFree += o.Bytes
			}
		}
		fmt.Fprintf(w, "%s would free %s\n", titleStyle.Render("Dry run:"),
			sizeStyle.Render(dupsweep.FormatSize(wouldFree)))
	}
	fmt.Fprintf(w, "%s %d deleted, %d skipped, %d failed, %s freed\n",
		titleStyle.Render("Summary:"), report.Deleted, report.Skipped, report.Failed,
		sizeStyle.Render(dupsweep.FormatSize(report.BytesFreed)))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// printStatus lists files that changed since a scan
func printStatus(w io.Writer, status *dupsweep.StatusResult) {
	fmt.Fprintln(w, titleStyle.Render("Status of "+status.Root))
	for _, path := range status.Modified {
		fmt.Fprintf(w, "  %s %s\n", warningStyle.Render("modified"), path)
	}
	for _, path := range status.Deleted {
		fmt.Fprintf(w, "  %s  %s\n", dangerStyle.Render("deleted"), path)
	}
	if !status.HasChanges() {
		fmt.Fprintln(w, mutedStyle.Render("All files match the saved result."))
		return
	}
	fmt.Fprintf(w, "%s %d changed, %d unchanged, %d stale groups\n",
		titleStyle.Render("Summary:"), status.TotalChanges(), status.Unchanged, status.StaleGroups)
}
