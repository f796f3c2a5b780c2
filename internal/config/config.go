// Package config provides browser-core configuration management with support for environment variables, command-line flags, and .env files.
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

// Defaults applied when neither flag, env var, nor .env file supplies a value.
const (
	defaultInactiveAfter    = 14 * 24 * time.Hour
	defaultDebounceInterval = 500 * time.Millisecond
	defaultPushInterval     = 2 * time.Second
	defaultPushBurst        = 2
)

// Config holds the browser core configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Profile ProfileConfig
	Tabs    TabsConfig
	Persist PersistConfig
	Remote  RemoteConfig
	Search  SearchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "pretty"; empty picks by environment
	File   string // optional rotating log file
}

// ProfileConfig holds the on-device profile directory layout.
type ProfileConfig struct {
	// DataDir is the root of the profile. Window records, session blobs,
	// screenshots, the search index, and the remote database all live under it.
	DataDir string
}

// TabsPath returns the directory holding window and session records.
func (p ProfileConfig) TabsPath() string {
	return filepath.Join(p.DataDir, "tabs")
}

// SearchPath returns the directory holding the tab search index.
func (p ProfileConfig) SearchPath() string {
	return filepath.Join(p.DataDir, "search")
}

// LegacyArchivePath returns the location of the pre-migration session archive.
func (p ProfileConfig) LegacyArchivePath() string {
	return filepath.Join(p.DataDir, "sessionstore.jsonlz4")
}

// TabsConfig holds tab lifecycle configuration.
type TabsConfig struct {
	// InactiveAfter is how long a normal tab may go unused before it is
	// classified inactive (default: 336h, 14 days).
	InactiveAfter time.Duration
	// InactiveEnabled toggles inactive classification entirely (default: true).
	InactiveEnabled bool
	// SkipRestore bypasses session restore and starts with a single empty
	// tab. Intended for automated test runs.
	SkipRestore bool
	// NeedsMigration marks an install that still carries a legacy session
	// archive. The shell flips it off after the first successful restore.
	NeedsMigration bool
}

// PersistConfig holds snapshot persistence configuration.
type PersistConfig struct {
	// DebounceInterval is how long the snapshot writer waits for mutations
	// to settle before writing (default: 500ms).
	DebounceInterval time.Duration
}

// RemoteConfig holds synced-tabs configuration.
type RemoteConfig struct {
	// DatabasePath is the sqlite file for remote clients, their tabs, and
	// the pending command queue (default: {profile}/remote.db).
	DatabasePath string
	// DeviceName identifies this install to other synced clients
	// (default: hostname).
	DeviceName string
	// PushInterval is the minimum spacing between local snapshot pushes per
	// device; a burst of tab mutations coalesces into one push (default: 2s).
	PushInterval time.Duration
	// PushBurst is how many pushes may go through back to back before the
	// interval applies (default: 2).
	PushBurst int
}

// SearchConfig holds tab search configuration.
type SearchConfig struct {
	// Enabled toggles the tab search index (default: true).
	Enabled bool
	// InMemory keeps the index off disk. Used by tests and by devices that
	// disable history retention.
	InMemory bool
}

// DefaultConfig returns the built-in defaults without reading flags, the
// environment, or any .env file. Paths are left unexpanded.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Environment: "development",
		},
		Logger: LoggerConfig{
			Level: "info",
		},
		Tabs: TabsConfig{
			InactiveAfter:   defaultInactiveAfter,
			InactiveEnabled: true,
		},
		Persist: PersistConfig{
			DebounceInterval: defaultDebounceInterval,
		},
		Remote: RemoteConfig{
			DeviceName:   defaultDeviceName(),
			PushInterval: defaultPushInterval,
			PushBurst:    defaultPushBurst,
		},
		Search: SearchConfig{
			Enabled: true,
		},
	}
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "Log format (json, pretty)")
	logFile := flag.String("log-file", "", "Rotating log file path (default: stdout)")
	profileDir := flag.String("profile-dir", "", "Profile data directory")

	// Tab lifecycle flags
	inactiveAfter := flag.String("inactive-after", "", "Staleness threshold for inactive tabs (default: 336h)")
	inactiveEnabled := flag.String("inactive-enabled", "", "Enable inactive tab classification (default: true)")

	// Persistence flags
	persistDebounce := flag.String("persist-debounce", "", "Snapshot write debounce interval (default: 500ms)")

	// Remote tabs flags
	remoteDBPath := flag.String("remote-db-path", "", "Path to the remote tabs database")
	deviceName := flag.String("device-name", "", "Device name shown to other synced clients")
	pushInterval := flag.String("push-interval", "", "Minimum spacing between snapshot pushes (default: 2s)")
	pushBurst := flag.String("push-burst", "", "Snapshot push burst size (default: 2)")

	// Search flags
	searchEnabled := flag.String("search-enabled", "", "Enable the tab search index (default: true)")
	searchInMemory := flag.String("search-in-memory", "", "Keep the search index in memory (default: false)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	// Parse flags but don't exit on error - we want to handle it gracefully.
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", ""),
			File:   getConfigValue(*logFile, "LOG_FILE", ""),
		},

		Profile: ProfileConfig{
			DataDir: getConfigValue(*profileDir, "DRIFT_DATA_DIR", ""),
		},

		Tabs: TabsConfig{
			InactiveAfter:   getDurationConfigValue(*inactiveAfter, "INACTIVE_AFTER", defaultInactiveAfter),
			InactiveEnabled: getBoolConfigValue(*inactiveEnabled, "INACTIVE_ENABLED", true),
			SkipRestore:     getBoolConfigValue("", "SKIP_RESTORE", false),
			NeedsMigration:  getBoolConfigValue("", "NEEDS_MIGRATION", false),
		},

		Persist: PersistConfig{
			DebounceInterval: getDurationConfigValue(*persistDebounce, "PERSIST_DEBOUNCE", defaultDebounceInterval),
		},

		Remote: RemoteConfig{
			DatabasePath: getConfigValue(*remoteDBPath, "REMOTE_DB_PATH", ""),
			DeviceName:   getConfigValue(*deviceName, "REMOTE_DEVICE_NAME", defaultDeviceName()),
			PushInterval: getDurationConfigValue(*pushInterval, "REMOTE_PUSH_INTERVAL", defaultPushInterval),
			PushBurst:    getIntConfigValue(*pushBurst, "REMOTE_PUSH_BURST", defaultPushBurst),
		},

		Search: SearchConfig{
			Enabled:  getBoolConfigValue(*searchEnabled, "SEARCH_ENABLED", true),
			InMemory: getBoolConfigValue(*searchInMemory, "SEARCH_IN_MEMORY", false),
		},
	}

	// Expand and validate the profile directory.
	if err := cfg.expandProfileDir(); err != nil {
		return nil, fmt.Errorf("invalid profile directory: %w", err)
	}

	// Expand the remote database path (defaults to {profile}/remote.db).
	if err := cfg.expandRemoteDatabasePath(); err != nil {
		return nil, fmt.Errorf("invalid remote database path: %w", err)
	}

	// Expand the log file path if one was given.
	if err := cfg.expandLogFilePath(); err != nil {
		return nil, fmt.Errorf("invalid log file path: %w", err)
	}

	// Validate configuration.
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

	validFormats := map[string]bool{
		"":       true,
		"json":   true,
		"pretty": true,
	}
	if !validFormats[strings.ToLower(c.Logger.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or pretty)", c.Logger.Format)
	}

	if c.Profile.DataDir == "" {
		return errors.New("profile data directory cannot be empty after expansion")
	}

	if c.Tabs.InactiveAfter <= 0 {
		return fmt.Errorf("invalid inactive threshold: %s (must be positive)", c.Tabs.InactiveAfter)
	}

	if c.Persist.DebounceInterval <= 0 {
		return fmt.Errorf("invalid persist debounce: %s (must be positive)", c.Persist.DebounceInterval)
	}

	if c.Remote.PushInterval <= 0 {
		return fmt.Errorf("invalid push interval: %s (must be positive)", c.Remote.PushInterval)
	}
	if c.Remote.PushBurst < 1 {
		return fmt.Errorf("invalid push burst: %d (must be at least 1)", c.Remote.PushBurst)
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

// expandProfileDir expands ~ and makes the path absolute.
func (c *Config) expandProfileDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Drift", "profile")

	expanded, err := expandPath(c.Profile.DataDir, defaultPath)
	if err != nil {
		return err
	}
	c.Profile.DataDir = expanded
	return nil
}

// expandRemoteDatabasePath expands ~ and makes the path absolute.
// Defaults to {profile}/remote.db if not specified.
func (c *Config) expandRemoteDatabasePath() error {
	defaultPath := filepath.Join(c.Profile.DataDir, "remote.db")

	expanded, err := expandPath(c.Remote.DatabasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Remote.DatabasePath = expanded
	return nil
}

// expandLogFilePath expands ~ and makes the path absolute.
// If empty, leaves it empty so logs go to stdout.
func (c *Config) expandLogFilePath() error {
	if c.Logger.File == "" {
		return nil
	}

	expanded, err := expandPath(c.Logger.File, "")
	if err != nil {
		return err
	}
	c.Logger.File = expanded
	return nil
}

// defaultDeviceName derives a device name from the hostname.
func defaultDeviceName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "Drift Mobile"
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

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue returns a time.Duration from flag, env var, or default.
// Unparseable values fall back to the default.
func getDurationConfigValue(flagValue, envKey string, defaultValue time.Duration) time.Duration {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return defaultValue
	}
	return d
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
