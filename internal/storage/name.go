package storage

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var nonNameChars = regexp.MustCompile(`[^a-z0-9-]+`)
var multiDash = regexp.MustCompile(`-+`)

// SafeName reduces an uploaded filename to a short slug usable inside an
// object path. The extension is handled separately by NewObjectPath.
func SafeName(filename string) string {
	s := filepath.Base(filename)
	s = strings.TrimSuffix(s, filepath.Ext(s))
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, " ", "-")
	s = nonNameChars.ReplaceAllString(s, "-")
	s = multiDash.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 40 {
		s = strings.Trim(s[:40], "-")
	}
	if s == "" {
		return "photo"
	}
	return s
}

// NewObjectPath builds a unique storage path for an uploaded photo.
func NewObjectPath(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	fragment := uuid.NewString()[:8]
	return fmt.Sprintf("listings/%d-%s-%s%s", time.Now().UnixMilli(), fragment, SafeName(filename), ext)
}
