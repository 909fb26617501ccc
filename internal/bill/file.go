package bill

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrFileNotAdmitted is returned when an attached proof does not have an
// allowed image extension
var ErrFileNotAdmitted = errors.New("file type not admitted")

// AllowedExtensions are the proof file extensions accepted for upload
var AllowedExtensions = []string{".jpg", ".jpeg", ".png"}

// File is a proof document selected on the new bill form
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Admit checks the file against the extension allow-list
func Admit(f File) error {
	ext := strings.ToLower(filepath.Ext(f.Name))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return ErrFileNotAdmitted
}

// DetectContentType returns the declared content type of the file, falling
// back to one derived from its extension
func DetectContentType(f File) string {
	if ct := strings.ToLower(strings.TrimSpace(f.ContentType)); ct != "" {
		return ct
	}
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
