package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"filippo.io/age"
)

// EnableEncryption encrypts every document file in place and records the
// password verifier. On failure already-encrypted files are rolled back.
func (s *Storage) EnableEncryption(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encrypted {
		return fmt.Errorf("encryption is already enabled")
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return fmt.Errorf("creating recipient: %w", err)
	}
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return fmt.Errorf("creating identity: %w", err)
	}

	verifyPath := filepath.Join(s.baseDir, verifyFile)
	verifier, err := encryptData([]byte(verifyMagic), recipient)
	if err != nil {
		return fmt.Errorf("encrypting verification file: %w", err)
	}
	if err := os.WriteFile(verifyPath, verifier, 0o644); err != nil {
		return fmt.Errorf("writing verification file: %w", err)
	}

	var files []string
	err = s.Walk(func(rel string) error {
		if shouldEncrypt(rel) {
			files = append(files, filepath.Join(s.baseDir, rel))
		}
		return nil
	})
	if err != nil {
		os.Remove(verifyPath)
		return fmt.Errorf("scanning data files: %w", err)
	}

	for i, path := range files {
		if err := transformFile(path, func(data []byte) ([]byte, error) {
			if isAgeEncrypted(data) {
				return nil, nil
			}
			return encryptData(data, recipient)
		}); err != nil {
			rollback(files[:i], identity)
			os.Remove(verifyPath)
			return fmt.Errorf("encrypting %s: %w", filepath.Base(path), err)
		}
	}

	if err := os.WriteFile(filepath.Join(s.baseDir, markerFile), []byte("encrypted"), 0o644); err != nil {
		return fmt.Errorf("writing marker file: %w", err)
	}

	s.encrypted = true
	s.identity = identity
	s.recipient = recipient
	slog.Info("data directory encrypted", "files", len(files))
	return nil
}

// DisableEncryption decrypts every encrypted file in place
func (s *Storage) DisableEncryption(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return fmt.Errorf("encryption is not enabled")
	}

	identity, err := s.verifyPassword(password)
	if err != nil {
		return err
	}

	count := 0
	err = s.Walk(func(rel string) error {
		path := filepath.Join(s.baseDir, rel)
		return transformFile(path, func(data []byte) ([]byte, error) {
			if !isAgeEncrypted(data) {
				return nil, nil
			}
			count++
			return decryptData(data, identity)
		})
	})
	if err != nil {
		return fmt.Errorf("decrypting data files: %w", err)
	}

	os.Remove(filepath.Join(s.baseDir, markerFile))
	os.Remove(filepath.Join(s.baseDir, verifyFile))

	s.encrypted = false
	s.identity = nil
	s.recipient = nil
	slog.Info("data directory decrypted", "files", count)
	return nil
}

// transformFile rewrites a file with fn's output. A nil result leaves the
// file untouched.
func transformFile(path string, fn func([]byte) ([]byte, error)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := fn(data)
	if err != nil || out == nil {
		return err
	}
	return atomicWrite(path, out, 0o644)
}

// rollback decrypts files encrypted during a failed EnableEncryption, best effort
func rollback(files []string, identity *age.ScryptIdentity) {
	for _, path := range files {
		err := transformFile(path, func(data []byte) ([]byte, error) {
			if !isAgeEncrypted(data) {
				return nil, nil
			}
			return decryptData(data, identity)
		})
		if err != nil {
			slog.Warn("rollback failed", "file", path, "error", err)
		}
	}
}
