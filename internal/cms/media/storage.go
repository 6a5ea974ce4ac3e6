// Package media stores the bytes of uploaded assets.
package media

import (
	"context"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
)

// Storage keeps uploaded bytes by filename. The index of assets lives in dao.
type Storage interface {
	// Put stores data under filename and returns the public URL.
	Put(ctx context.Context, filename, contentType string, data []byte) (url string, err error)
	// Delete removes filename, reporting whether it existed.
	Delete(ctx context.Context, filename string) (bool, error)
	// URL returns the public URL of filename without touching storage.
	URL(filename string) string
}

const maxNameLen = 120

var (
	unsafeNameChars = regexp.MustCompile(`[^0-9A-Za-z._-]+`)
	repeatedDashes  = regexp.MustCompile(`-{2,}`)
	safeName        = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z._-]{0,254}$`)
)

// IsSafeName reports whether name can be stored without escaping its directory.
func IsSafeName(name string) bool {
	return safeName.MatchString(name)
}

// SanitizeName reduces a requested upload name to a safe base name.
func SanitizeName(requested string) string {
	name := filepath.Base(strings.ReplaceAll(requested, `\`, "/"))
	name = unsafeNameChars.ReplaceAllString(name, "-")
	name = repeatedDashes.ReplaceAllString(name, "-")
	name = strings.Trim(name, ".-_")
	if len(name) > maxNameLen {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = name[:maxNameLen-len(ext)] + ext
	}
	if name == "" {
		name = "file"
	}

	return name
}

// BuildFilename joins a unique sortable prefix and the sanitized requested name.
func BuildFilename(prefix, requested string) string {
	return prefix + "-" + SanitizeName(requested)
}

// DetectMimeType guesses the content type from the extension then the bytes.
func DetectMimeType(filename string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); t != "" {
		return t
	}

	return http.DetectContentType(data)
}
