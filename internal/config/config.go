// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultUploadMaxBytes is the largest custom sound accepted (300 MB).
	DefaultUploadMaxBytes int64 = 300 * 1024 * 1024
	// DefaultUploadMaxDuration is the longest custom sound accepted.
	DefaultUploadMaxDuration = 10 * time.Minute
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Sounds  SoundsConfig
	Server  ServerConfig
	Upload  UploadConfig
	Page    PageConfig
	Channel ChannelConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
	// Format is "json" or "pretty"; empty picks by environment.
	Format string
}

// StorageConfig holds persistent storage locations.
type StorageConfig struct {
	// DataPath holds the settings KV directory and the blob database.
	DataPath string
}

// SettingsDBPath returns the badger directory for the settings document.
func (s StorageConfig) SettingsDBPath() string {
	return filepath.Join(s.DataPath, "settings")
}

// BlobDBPath returns the sqlite file for custom sound blobs.
func (s StorageConfig) BlobDBPath() string {
	return filepath.Join(s.DataPath, "sounds.db")
}

// SoundsConfig holds preset sound asset configuration.
type SoundsConfig struct {
	// PresetPath is the directory holding the bundled preset files.
	PresetPath string
	// AssetBaseURL is the extension-local URL prefix presets resolve to.
	AssetBaseURL string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8787)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 0, the config stream is long-lived)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	// ShutdownTimeout bounds graceful shutdown of the server and hub (default: 30s).
	ShutdownTimeout time.Duration
	CORSOrigins  []string      // Origins allowed to call the settings API
}

// UploadConfig bounds custom sound uploads.
type UploadConfig struct {
	MaxBytes      int64
	MaxDuration   time.Duration
	RatePerMinute int
}

// PageConfig describes the host application page.
type PageConfig struct {
	// Origin is the host application's origin; relay broadcasts are scoped to it.
	Origin string
	// AnswerTexts and AnswerClasses override the answer-click match list.
	AnswerTexts   []string
	AnswerClasses []string
}

// ChannelConfig tunes the config propagation channel.
type ChannelConfig struct {
	// RetryDelay is the pause before the single retry of a failed delivery.
	RetryDelay time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load is LoadConfig with an explicit argument list.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("soundswap", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (json, pretty)")
	dataPath := fs.String("data-path", "", "Base path for settings and sound storage")
	presetPath := fs.String("preset-path", "", "Directory holding preset sound files")
	assetBaseURL := fs.String("asset-base-url", "", "URL prefix preset sounds resolve to")
	pageOrigin := fs.String("page-origin", "", "Origin of the host application page")

	serverPort := fs.String("port", "", "Server port (default: 8787)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 0)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	shutdownTimeout := fs.String("shutdown-timeout", "", "Graceful shutdown timeout (default: 30s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated origins allowed to call the API")

	uploadMaxBytes := fs.String("upload-max-bytes", "", "Largest accepted custom sound in bytes")
	uploadMaxDuration := fs.String("upload-max-duration", "", "Longest accepted custom sound (default: 10m)")
	uploadRate := fs.String("upload-rate", "", "Uploads allowed per minute per client (default: 20)")

	answerTexts := fs.String("answer-texts", "", "Comma separated answer button texts")
	answerClasses := fs.String("answer-classes", "", "Comma separated answer button class fragments")
	retryDelay := fs.String("channel-retry-delay", "", "Delay before retrying a failed delivery (default: 250ms)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: strings.ToLower(getConfigValue(*logFormat, "LOG_FORMAT", "")),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Sounds: SoundsConfig{
			PresetPath:   getConfigValue(*presetPath, "PRESET_PATH", ""),
			AssetBaseURL: strings.TrimRight(getConfigValue(*assetBaseURL, "ASSET_BASE_URL", ""), "/"),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8787"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "")),
		},
		Upload: UploadConfig{
			MaxBytes:      getInt64ConfigValue(*uploadMaxBytes, "UPLOAD_MAX_BYTES", DefaultUploadMaxBytes),
			RatePerMinute: int(getInt64ConfigValue(*uploadRate, "UPLOAD_RATE_PER_MINUTE", 20)),
		},
		Page: PageConfig{
			Origin:        strings.TrimRight(getConfigValue(*pageOrigin, "PAGE_ORIGIN", "https://remowork.biz"), "/"),
			AnswerTexts:   splitList(getConfigValue(*answerTexts, "ANSWER_TEXTS", "")),
			AnswerClasses: splitList(getConfigValue(*answerClasses, "ANSWER_CLASSES", "")),
		},
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dest      *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "0s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*shutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT", "30s", &cfg.Server.ShutdownTimeout},
		{*uploadMaxDuration, "UPLOAD_MAX_DURATION", DefaultUploadMaxDuration.String(), &cfg.Upload.MaxDuration},
		{*retryDelay, "CHANNEL_RETRY_DELAY", "250ms", &cfg.Channel.RetryDelay},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.dest = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.expandPresetPath(); err != nil {
		return nil, fmt.Errorf("invalid preset path: %w", err)
	}

	if cfg.Sounds.AssetBaseURL == "" {
		cfg.Sounds.AssetBaseURL = "http://localhost:" + cfg.Server.Port + "/assets/sounds"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Logger.Format {
	case "", "json", "pretty":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or pretty)", c.Logger.Format)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max bytes must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Upload.MaxDuration <= 0 {
		return fmt.Errorf("upload max duration must be positive, got %s", c.Upload.MaxDuration)
	}

	if !strings.HasPrefix(c.Page.Origin, "http://") && !strings.HasPrefix(c.Page.Origin, "https://") {
		return fmt.Errorf("invalid page origin: %s (must be an http or https origin)", c.Page.Origin)
	}

	if c.Channel.RetryDelay < 0 {
		return errors.New("channel retry delay cannot be negative")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults to ~/Remowork/soundswap.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Remowork", "soundswap")

	expanded, err := expandPath(c.Storage.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// expandPresetPath defaults to {data}/presets.
func (c *Config) expandPresetPath() error {
	defaultPath := filepath.Join(c.Storage.DataPath, "presets")

	expanded, err := expandPath(c.Sounds.PresetPath, defaultPath)
	if err != nil {
		return err
	}
	c.Sounds.PresetPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getInt64ConfigValue returns an int64 from flag, env var, or default.
func getInt64ConfigValue(flagValue, envKey string, defaultValue int64) int64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int64
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// splitList splits a comma separated value, dropping blanks.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
