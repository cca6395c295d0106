package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrFileNotFound  = errors.New("staged file not found")
	ErrFileTooLarge  = errors.New("payload exceeds size limit")
	ErrBlockedExt    = errors.New("file extension is blocked")
)

// DefaultMaxPayload bounds a staged upload body when no limit is configured (64 MB)
const DefaultMaxPayload = 64 * 1024 * 1024

// BlockedExtensions contains attachment file extensions that are refused
var BlockedExtensions = map[string]bool{
	".exe": true, ".bat": true, ".cmd": true, ".com": true,
	".pif": true, ".scr": true, ".vbs": true, ".jar": true,
	".ps1": true, ".msi": true, ".dll": true, ".sys": true,
}

// Staged describes an upload body spooled to disk. Size is known once
// staging completes, which lets the adapter send an exact Content-Length
// and report progress as a percentage.
type Staged struct {
	Path string
	Size int64
}

// StagingArea spools request bodies to disk before they are forwarded
type StagingArea interface {
	Stage(fileName string, content io.Reader) (*Staged, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
}

type localStaging struct {
	basePath   string
	maxPayload int64
}

// NewLocalStaging creates a staging area rooted at basePath. A maxPayload of
// zero or less uses DefaultMaxPayload.
func NewLocalStaging(basePath string, maxPayload int64) (StagingArea, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &localStaging{basePath: basePath, maxPayload: maxPayload}, nil
}

// ValidateFileName rejects attachment names with a blocked extension
func ValidateFileName(fileName string) error {
	if BlockedExtensions[strings.ToLower(filepath.Ext(fileName))] {
		return ErrBlockedExt
	}
	return nil
}

// validatePath ensures path stays within basePath
func (s *localStaging) validatePath(filePath string) (string, error) {
	cleanPath := filepath.Clean(filePath)

	if filepath.IsAbs(cleanPath) || strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, cleanPath))
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return "", ErrPathTraversal
	}

	return absPath, nil
}

// Stage copies content into a uniquely named file and returns its relative
// path and size. Bodies over the limit are removed and rejected.
func (s *localStaging) Stage(fileName string, content io.Reader) (*Staged, error) {
	if err := ValidateFileName(fileName); err != nil {
		return nil, err
	}

	uniqueName := uuid.New().String() + filepath.Ext(fileName)

	// Two-character fan-out keeps directories small
	subDir := uniqueName[:2]
	if err := os.MkdirAll(filepath.Join(s.basePath, subDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create subdirectory: %w", err)
	}

	relPath := filepath.Join(subDir, uniqueName)
	fullPath := filepath.Join(s.basePath, relPath)

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}
	defer file.Close()

	n, err := io.Copy(file, io.LimitReader(content, s.maxPayload+1))
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write staged file: %w", err)
	}
	if n > s.maxPayload {
		os.Remove(fullPath)
		return nil, ErrFileTooLarge
	}

	return &Staged{Path: relPath, Size: n}, nil
}

// Open returns a reader over a staged file
func (s *localStaging) Open(filePath string) (io.ReadCloser, error) {
	fullPath, err := s.validatePath(filePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open staged file: %w", err)
	}

	return file, nil
}

// Remove deletes a staged file. Removing a missing file is not an error.
func (s *localStaging) Remove(filePath string) error {
	fullPath, err := s.validatePath(filePath)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove staged file: %w", err)
	}

	return nil
}
