package paths

import (
	"os"
	"path/filepath"
)

// GetConfigDir returns the user's config directory for themekit.
//
// If the home directory cannot be determined, it falls back to a directory
// under the system temporary directory.
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), ".themekit-config"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".config", "themekit"))
}

// GetDataDir returns the user's data directory for themekit (logs, applied
// stylesheets).
func GetDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), ".themekit"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".themekit"))
}

// GetThemesDir returns the directory user themes are discovered in.
func GetThemesDir() string {
	return filepath.Join(GetConfigDir(), "themes")
}

// GetHomeDir returns the user's home directory, or an empty string if it
// cannot be determined.
func GetHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Clean(homeDir)
}
