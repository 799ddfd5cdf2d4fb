package api

// API limits and constants.
const (
	// DefaultMaxUploadSize is the largest accepted custom sound (300 MB).
	DefaultMaxUploadSize = 300 << 20

	// AssetsPath is where bundled preset files are served.
	AssetsPath = "/assets/sounds"
)

// Cache-Control header values.
const (
	CacheOneDay  = "public, max-age=86400"
	CacheNoStore = "no-store"
)

// HeaderSettingsRevision carries the settings revision a response reflects.
const HeaderSettingsRevision = "X-Settings-Revision"
