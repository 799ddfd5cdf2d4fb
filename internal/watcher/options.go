package watcher

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// DefaultExtensions are the preset file types the watcher reports.
var DefaultExtensions = []string{".mp3", ".wav", ".ogg", ".m4a"}

// Options configures the file watcher behavior.
type Options struct {
	// SettleDelay is how long a file's size and mtime must hold still
	// before a write is reported.
	SettleDelay time.Duration

	// Extensions limits reported files by lower-case extension. Nil means
	// DefaultExtensions; an empty slice reports every file.
	Extensions []string

	// TempPatterns match base names of in-flight copies that are never
	// reported. Nil means the common editor and download patterns.
	TempPatterns []string
}

func (o *Options) setDefaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = 100 * time.Millisecond
	}
	if o.Extensions == nil {
		o.Extensions = DefaultExtensions
	}
	if o.TempPatterns == nil {
		o.TempPatterns = []string{"*.tmp", "*.part", "*.crdownload", "*~", "*.swp"}
	}
}

// skipPath reports paths nobody ships presets under: hidden entries and
// temp copies. It applies to files and directories alike.
func (o *Options) skipPath(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") && base != "." && base != ".." {
		return true
	}
	for _, pattern := range o.TempPatterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// skipFile is skipPath plus the extension filter.
func (o *Options) skipFile(path string) bool {
	if o.skipPath(path) {
		return true
	}
	if len(o.Extensions) == 0 {
		return false
	}
	return !slices.Contains(o.Extensions, strings.ToLower(filepath.Ext(path)))
}
