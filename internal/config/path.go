package config

import (
	"os"
	"path/filepath"
	goruntime "runtime"
)

// SystemDataDir is used on Linux when it already exists and is writable,
// typically provisioned by a package or service unit.
const SystemDataDir = "/var/lib/eventual"

// DefaultDataDir returns the default data directory based on the host OS.
// XDG_DATA_HOME wins when set; otherwise the per-user application data
// location is used, falling back to ./data without a home directory.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "eventual")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}
	switch goruntime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "Eventual")
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "Eventual")
		}
		return filepath.Join(homeDir, "AppData", "Local", "Eventual")
	}
	if isWritableDir(SystemDataDir) {
		return SystemDataDir
	}
	return filepath.Join(homeDir, ".local", "share", "eventual")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func isWritableDir(path string) bool {
	if !isDir(path) {
		return false
	}
	f, err := os.CreateTemp(path, ".writable-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}
