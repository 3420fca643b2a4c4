package paths

import (
	"os"
	"path/filepath"
)

// AppName names the per-user directories.
const AppName = "ipdash"

// HomeEnv overrides the home directory all other paths derive from.
const HomeEnv = "IPDASH_HOME"

// HomeDir returns $IPDASH_HOME when set, otherwise the user's home directory.
func HomeDir() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}
	return os.UserHomeDir()
}

func ensure(parts ...string) (string, error) {
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(append([]string{home}, parts...)...)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// CacheDir returns ~/.cache/ipdash, creating it if needed. The log file
// lives here.
func CacheDir() (string, error) {
	return ensure(".cache", AppName)
}

// DataDir returns ~/.local/share/ipdash, creating it if needed.
func DataDir() (string, error) {
	return ensure(".local", "share", AppName)
}

// ConfigDir returns ~/.config/ipdash, creating it if needed.
func ConfigDir() (string, error) {
	return ensure(".config", AppName)
}

// DefaultConfigFile is the YAML file read when --config is not given.
func DefaultConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultDBPath is the sqlite database holding settings and history.
func DefaultDBPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName+".db"), nil
}
