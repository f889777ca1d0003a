package dupsweep

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreFileName is the per-root ignore file picked up by the scanner
const IgnoreFileName = ".dupsweepignore"

// IgnoreManager matches slash-separated relative paths against regex patterns
type IgnoreManager struct {
	patterns []*regexp.Regexp
}

// NewIgnoreManager compiles the given patterns
func NewIgnoreManager(patterns []string) (*IgnoreManager, error) {
	im := &IgnoreManager{}
	for _, p := range patterns {
		if err := im.AddPattern(p); err != nil {
			return nil, err
		}
	}
	return im, nil
}

// LoadIgnoreFile appends patterns from an ignore file. A missing file is not an error.
func (im *IgnoreManager) LoadIgnoreFile(path string) error {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pattern, err := regexp.Compile(line)
		if err != nil {
			return fmt.Errorf("invalid regex pattern at line %d: %s - %w", lineNum, line, err)
		}

		im.patterns = append(im.patterns, pattern)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading ignore file: %w", err)
	}

	return nil
}

// AddPattern adds a new ignore pattern
func (im *IgnoreManager) AddPattern(patternStr string) error {
	patternStr = strings.TrimSpace(patternStr)
	if patternStr == "" {
		return nil
	}
	pattern, err := regexp.Compile(patternStr)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %s - %w", patternStr, err)
	}

	im.patterns = append(im.patterns, pattern)
	return nil
}

// ShouldIgnore checks if a path should be ignored based on patterns
func (im *IgnoreManager) ShouldIgnore(relativePath string) bool {
	if im == nil {
		return false
	}

	// Normalise path separators to forward slashes for consistent pattern matching
	normalisedPath := filepath.ToSlash(relativePath)

	for _, pattern := range im.patterns {
		if pattern.MatchString(normalisedPath) {
			return true
		}
	}

	return false
}

// HasPatterns returns true if there are any ignore patterns loaded
func (im *IgnoreManager) HasPatterns() bool {
	return im != nil && len(im.patterns) > 0
}

// ValidatePattern checks if a pattern string is a valid regex
func ValidatePattern(patternStr string) error {
	_, err := regexp.Compile(patternStr)
	return err
}
