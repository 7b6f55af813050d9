// Package validation provides path sanitization for archive entries and
// extraction targets, preventing path traversal (zip-slip) and resource
// exhaustion when reading untrusted containers.
package validation

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"unicode"
)

// Security limits to prevent DoS attacks (CWE-400).
const (
	// MaxEntrySize is the maximum allowed decompressed entry size (256 MB).
	MaxEntrySize = 256 << 20
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
)

// CleanEntryName validates an archive entry name and returns it in canonical
// form: forward slashes, no leading "./" or "/", no ".." segments.
func CleanEntryName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyPath
	}
	if len(name) > MaxPathLength {
		return "", ErrPathTooLong
	}
	for _, r := range name {
		if r == 0 || unicode.IsControl(r) {
			return "", fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}

	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: absolute entry name", ErrPathTraversal)
	}

	cleaned := path.Clean(name)
	if cleaned == "." {
		return "", ErrEmptyPath
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrPathTraversal
	}
	return cleaned, nil
}

// IsTopLevel reports whether a cleaned entry name sits at the archive root.
func IsTopLevel(name string) bool {
	return !strings.Contains(strings.TrimSuffix(name, "/"), "/")
}

// SanitizePath validates a user-supplied relative path and ensures it does
// not escape baseDir. Returns the joined, cleaned filesystem path.
func SanitizePath(baseDir, userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}
	if len(userPath) > MaxPathLength {
		return "", ErrPathTooLong
	}

	entry, err := CleanEntryName(userPath)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(baseDir, filepath.FromSlash(entry))
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	// Ensure the resolved path is within the base directory
	relPath, err := filepath.Rel(absBase, absPath)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}

	return fullPath, nil
}

// ValidatePath performs basic path validation without requiring a base directory.
// It checks length limits and invalid characters.
func ValidatePath(p string) error {
	if p == "" {
		return ErrEmptyPath
	}
	if len(p) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(p, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range p {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}
