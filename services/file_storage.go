package services

import (
	"bytes"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"hebrew-rag-platform/internal/config"
	"hebrew-rag-platform/internal/logger"
)

// FileStorageManager handles secure file storage operations
type FileStorageManager struct {
	uploadDir string
	tempDir   string
}

// NewFileStorageManager creates a new file storage manager
func NewFileStorageManager(cfg *config.Config) *FileStorageManager {
	baseDir := cfg.FileStorageDir
	if baseDir == "" {
		baseDir = "./storage"
	}

	uploadDir := filepath.Join(baseDir, "documents")
	tempDir := filepath.Join(baseDir, "temp")

	os.MkdirAll(uploadDir, 0755)
	os.MkdirAll(tempDir, 0755)

	return &FileStorageManager{
		uploadDir: uploadDir,
		tempDir:   tempDir,
	}
}

// SecureFileInfo contains information about a securely stored file
type SecureFileInfo struct {
	Path       string
	SecureName string
	Hash       string
	Size       int64
}

// SecureStore streams an upload to disk under a generated name, hashing it
// on the way for deduplication, and validates the file's magic bytes before
// moving it into place.
func (sm *FileStorageManager) SecureStore(file multipart.File, header *multipart.FileHeader, userID string) (*SecureFileInfo, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to reset file position: %w", err)
	}

	secureName := sm.generateSecureFilename(header.Filename)

	userDir := filepath.Join(sm.uploadDir, userID)
	if err := os.MkdirAll(userDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create user directory: %w", err)
	}
	filePath := filepath.Join(userDir, secureName)

	// Write through a temp file so a half-written upload never lands in the
	// final location.
	tempPath := filepath.Join(sm.tempDir, uuid.NewString()+".tmp")
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	hasher := md5.New()
	bytesWritten, err := io.Copy(io.MultiWriter(tempFile, hasher), file)
	if err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	if bytesWritten == 0 {
		os.Remove(tempPath)
		return nil, fmt.Errorf("file is empty")
	}

	if err := validateMagicBytes(tempPath, strings.ToLower(filepath.Ext(header.Filename))); err != nil {
		os.Remove(tempPath)
		return nil, err
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to move file to final location: %w", err)
	}

	return &SecureFileInfo{
		Path:       filePath,
		SecureName: secureName,
		Hash:       hex.EncodeToString(hasher.Sum(nil)),
		Size:       bytesWritten,
	}, nil
}

// validateMagicBytes confirms the stored bytes match the claimed file type,
// so a renamed executable cannot sneak through extension checks.
func validateMagicBytes(path, ext string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file for validation: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file header: %w", err)
	}
	head = head[:n]

	switch ext {
	case ".pdf":
		if !bytes.HasPrefix(head, []byte("%PDF")) {
			return fmt.Errorf("invalid PDF file: missing PDF magic bytes")
		}
	case ".xlsx":
		// XLSX is a ZIP container.
		if !bytes.HasPrefix(head, []byte{0x50, 0x4B, 0x03, 0x04}) {
			return fmt.Errorf("invalid XLSX file: not a ZIP container")
		}
	case ".html", ".htm":
		trimmed := bytes.TrimLeft(head, " \t\r\n\xef\xbb\xbf")
		if len(trimmed) == 0 || trimmed[0] != '<' {
			return fmt.Errorf("invalid HTML file: no markup found")
		}
	default:
		return fmt.Errorf("unsupported file extension: %s", ext)
	}
	return nil
}

// generateSecureFilename creates a collision-free name that keeps a sanitized
// trace of the original for debuggability.
func (sm *FileStorageManager) generateSecureFilename(originalName string) string {
	randomBytes := make([]byte, 8)
	rand.Read(randomBytes)
	randomPrefix := hex.EncodeToString(randomBytes)

	timestamp := time.Now().Format("20060102_150405")

	ext := filepath.Ext(originalName)
	baseName := strings.TrimSuffix(originalName, ext)
	safeName := strings.ReplaceAll(baseName, " ", "_")
	safeName = strings.ReplaceAll(safeName, "..", "")
	if len(safeName) > 50 {
		safeName = safeName[:50]
	}

	return fmt.Sprintf("%s_%s_%s%s", timestamp, randomPrefix, safeName, ext)
}

// Cleanup removes a file from storage
func (sm *FileStorageManager) Cleanup(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to cleanup file", "path", filePath, "error", err.Error())
	}
}
