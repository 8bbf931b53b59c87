// Package objectkey builds storage keys for uploaded dream images.
package objectkey

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator defines the interface for object key generation strategies
type Generator interface {
	// PresignKey creates a fresh key for a client-side direct upload:
	// users/{user}/dreams/{yyyy}/{mm}/{dd}/{random}_{filename}
	PresignKey(userID uuid.UUID, fileName string, now time.Time) string

	// UploadKey creates the key for a worker-side upload. The key is
	// deterministic in (dream, position) so a retried task overwrites the
	// object it already wrote instead of duplicating it.
	UploadKey(userID, dreamID uuid.UUID, position int, fileName string) string
}

// UserScopedGenerator keys everything under a per-user prefix with date-based
// folders, matching the layout the access URLs and FileKeyFromURL expect.
type UserScopedGenerator struct{}

func New() *UserScopedGenerator {
	return &UserScopedGenerator{}
}

func (g *UserScopedGenerator) PresignKey(userID uuid.UUID, fileName string, now time.Time) string {
	datePath := now.UTC().Format("2006/01/02")
	unique := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("users/%s/dreams/%s/%s_%s", userID, datePath, unique, SanitizeFileName(fileName))
}

func (g *UserScopedGenerator) UploadKey(userID, dreamID uuid.UUID, position int, fileName string) string {
	return fmt.Sprintf("users/%s/dreams/%s_%d_%s", userID, dreamID, position, SanitizeFileName(fileName))
}

// SanitizeFileName makes a client-supplied file name safe to embed in a key.
// The extension is kept, the base name is restricted to [a-zA-Z0-9_-] and
// truncated to 50 characters.
func SanitizeFileName(fileName string) string {
	if fileName == "" {
		return uuid.New().String()[:8] + ".jpg"
	}

	base, ext := fileName, ""
	if i := strings.LastIndex(fileName, "."); i > 0 && !strings.ContainsAny(fileName[i:], "/\\") {
		base, ext = fileName[:i], fileName[i:]
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	safe := b.String()
	if len(safe) > 50 {
		safe = safe[:50]
	}
	return safe + strings.ToLower(ext)
}
