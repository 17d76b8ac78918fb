package config

import (
	"os"
	"path/filepath"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "leapsource.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "leapsource.yml"

// MaxUpwardSearchLevels limits how many parent directories FindProjectRoot visits.
const MaxUpwardSearchLevels = 10

// FindConfigFile returns the path of the leapsource config file in dir,
// preferring leapsource.yaml over leapsource.yml. Returns "" if neither exists.
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// ConfigExistsIn reports whether dir holds a leapsource config file.
func ConfigExistsIn(dir string) bool {
	return FindConfigFile(dir) != ""
}

// FindProjectRoot walks up from startDir, at most MaxUpwardSearchLevels
// directories, looking for one that holds a config file.
// Returns "" if none is found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for i := 0; i < MaxUpwardSearchLevels; i++ {
		if ConfigExistsIn(dir) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
	return ""
}
