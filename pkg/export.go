package dupsweep

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/vectorio"
	"golang.org/x/sys/unix"
)

// ExportVersion is written in the first line of every export
const ExportVersion = 1

// iovMax bounds the iovecs handed to a single writev call (golang/go#58623)
const iovMax = 1024

// exportLine is one JSON line of an export. The first line carries the
// result without its groups; each following line carries one group.
type exportLine struct {
	Type    string          `json:"type"`
	Version int             `json:"version,omitempty"`
	Result  *ScanResult     `json:"result,omitempty"`
	Group   *DuplicateGroup `json:"group,omitempty"`
}

// encodeExport renders the result as newline-terminated JSON lines
func encodeExport(result *ScanResult) ([][]byte, error) {
	header := *result
	header.Groups = nil

	lines := make([][]byte, 0, len(result.Groups)+1)
	first, err := json.Marshal(exportLine{Type: "result", Version: ExportVersion, Result: &header})
	if err != nil {
		return nil, fmt.Errorf("failed to encode result header: %w", err)
	}
	lines = append(lines, append(first, '\n'))

	for _, g := range result.Groups {
		line, err := json.Marshal(exportLine{Type: "group", Group: g})
		if err != nil {
			return nil, fmt.Errorf("failed to encode group %s: %w", g.Digest.Hex(), err)
		}
		lines = append(lines, append(line, '\n'))
	}
	return lines, nil
}

// ExportResult writes result to path as JSON lines. The file is written
// next to the destination, synced and renamed into place.
func ExportResult(result *ScanResult, path string) error {
	if result == nil {
		return fmt.Errorf("no result to export")
	}

	lines, err := encodeExport(result)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dupsweep-export-*")
	if err != nil {
		return fmt.Errorf("failed to create temp export file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := writeLines(tmp, lines); err != nil {
		return err
	}
	if err := unix.Fsync(int(tmp.Fd())); err != nil {
		return fmt.Errorf("failed to sync export: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return fmt.Errorf("failed to set export permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close export: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	committed = true
	return nil
}

// writeLines writes all lines with writev, chunked to iovMax vectors
func writeLines(file *os.File, lines [][]byte) error {
	iovecs := make([]syscall.Iovec, 0, len(lines))
	expected := 0
	for _, line := range lines {
		iov := syscall.Iovec{Base: &line[0]}
		iov.SetLen(len(line))
		iovecs = append(iovecs, iov)
		expected += len(line)
	}

	totalWritten := 0
	for offset := 0; offset < len(iovecs); offset += iovMax {
		end := offset + iovMax
		if end > len(iovecs) {
			end = len(iovecs)
		}

		chunk := iovecs[offset:end]
		chunkSize := 0
		for _, iov := range chunk {
			chunkSize += int(iov.Len)
		}

		nw, err := vectorio.WritevRaw(uintptr(file.Fd()), chunk)
		if err != nil {
			return fmt.Errorf("failed to write export chunk with vectorio: %w", err)
		}
		if nw != chunkSize {
			return fmt.Errorf("export write incomplete: wrote %d bytes, expected %d", nw, chunkSize)
		}
		totalWritten += nw
	}

	if totalWritten != expected {
		return fmt.Errorf("export write incomplete: wrote %d bytes, expected %d", totalWritten, expected)
	}
	return nil
}

// LoadResult reads an export written by ExportResult
func LoadResult(path string) (*ScanResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer file.Close()

	return ReadResult(file)
}

// ReadResult decodes an export from r
func ReadResult(r io.Reader) (*ScanResult, error) {
	reader := bufio.NewReader(r)
	var result *ScanResult
	lineNum := 0

	for {
		raw, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(raw)) > 0 {
			lineNum++
			var line exportLine
			if jerr := json.Unmarshal(raw, &line); jerr != nil {
				return nil, fmt.Errorf("invalid export line %d: %w", lineNum, jerr)
			}

			switch line.Type {
			case "result":
				if result != nil {
					return nil, fmt.Errorf("line %d: repeated result header", lineNum)
				}
				if line.Version != ExportVersion {
					return nil, fmt.Errorf("unsupported export version %d", line.Version)
				}
				if line.Result == nil {
					return nil, fmt.Errorf("line %d: result header has no body", lineNum)
				}
				result = line.Result
				result.Groups = nil
			case "group":
				if result == nil {
					return nil, fmt.Errorf("line %d: group before result header", lineNum)
				}
				if line.Group == nil {
					return nil, fmt.Errorf("line %d: empty group", lineNum)
				}
				result.Groups = append(result.Groups, line.Group)
			default:
				return nil, fmt.Errorf("line %d: unknown record type %q", lineNum, line.Type)
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read export: %w", err)
		}
	}

	if result == nil {
		return nil, fmt.Errorf("export contains no result header")
	}
	return result, nil
}
