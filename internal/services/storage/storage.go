// Package storage provides file access under a data directory with optional
// transparent age encryption of document files.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"filippo.io/age"
)

const (
	// ageHeader is the prefix of age-encrypted files
	ageHeader = "age-encryption.org"

	// markerFile indicates encryption is enabled
	markerFile = ".encrypted"

	// verifyFile holds verifyMagic encrypted with the current password
	verifyFile = ".encryption-verify"

	verifyMagic = `{"magic":"realestate-encryption-verify","version":1}`

	// minPasswordLength is enforced when encryption is enabled
	minPasswordLength = 8
)

var (
	// ErrLocked is returned when reading an encrypted file before Unlock
	ErrLocked = errors.New("storage is locked")

	// ErrWrongPassword is returned when the password does not match
	ErrWrongPassword = errors.New("incorrect password")

	// ErrInvalidPath is returned for paths that escape the base directory
	ErrInvalidPath = errors.New("invalid storage path")
)

// Storage reads and writes files relative to a base directory, encrypting
// document files when encryption is enabled
type Storage struct {
	baseDir   string
	encrypted bool
	identity  *age.ScryptIdentity
	recipient *age.ScryptRecipient
	mu        sync.RWMutex
}

// New creates a Storage rooted at baseDir, creating it if needed
func New(baseDir string) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &Storage{baseDir: baseDir}
	if _, err := os.Stat(filepath.Join(baseDir, markerFile)); err == nil {
		s.encrypted = true
	}
	return s, nil
}

// BaseDir returns the base directory
func (s *Storage) BaseDir() string {
	return s.baseDir
}

// IsEncrypted reports whether the data directory is encrypted
func (s *Storage) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encrypted
}

// IsUnlocked reports whether files can be read and written
func (s *Storage) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.encrypted || s.identity != nil
}

// Unlock loads the key for an encrypted data directory
func (s *Storage) Unlock(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return nil
	}

	identity, err := s.verifyPassword(password)
	if err != nil {
		return err
	}
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return fmt.Errorf("creating recipient: %w", err)
	}

	s.identity = identity
	s.recipient = recipient
	return nil
}

// Lock drops the key from memory
func (s *Storage) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = nil
	s.recipient = nil
}

// ReadFile reads a file relative to the base directory, decrypting it if needed
func (s *Storage) ReadFile(name string) ([]byte, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !isAgeEncrypted(data) {
		return data, nil
	}
	if s.identity == nil {
		return nil, ErrLocked
	}
	return decryptData(data, s.identity)
}

// WriteFile atomically writes a file relative to the base directory,
// encrypting document files when encryption is enabled
func (s *Storage) WriteFile(name string, data []byte) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.encrypted && shouldEncrypt(path) {
		if s.recipient == nil {
			return ErrLocked
		}
		data, err = encryptData(data, s.recipient)
		if err != nil {
			return fmt.Errorf("encrypting %s: %w", name, err)
		}
	}

	return atomicWrite(path, data, 0o644)
}

// Remove deletes a file relative to the base directory
func (s *Storage) Remove(name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// Exists reports whether a file exists
func (s *Storage) Exists(name string) bool {
	path, err := s.resolve(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// List returns the sorted names of regular files in a subdirectory with the
// given extension. A missing directory yields no names.
func (s *Storage) List(dir, ext string) ([]string, error) {
	path, err := s.resolve(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Walk calls fn with the relative path of every data file, skipping the
// encryption marker and verification files
func (s *Storage) Walk(fn func(rel string) error) error {
	return filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || isControlFile(path) {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		return fn(rel)
	})
}

// resolve maps a relative name to a path inside the base directory
func (s *Storage) resolve(name string) (string, error) {
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, name)
	}
	return filepath.Join(s.baseDir, clean), nil
}

// atomicWrite writes through a temp file and renames it into place
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// shouldEncrypt reports whether a file holds document data
func shouldEncrypt(path string) bool {
	if isControlFile(path) {
		return false
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".csv":
		return true
	}
	return false
}

func isControlFile(path string) bool {
	base := filepath.Base(path)
	return base == markerFile || base == verifyFile
}

// isAgeEncrypted checks for the age header
func isAgeEncrypted(data []byte) bool {
	return len(data) > len(ageHeader) && string(data[:len(ageHeader)]) == ageHeader
}
