package site

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Locations resolves Local's on-disk locations. A non-empty override
// replaces the platform defaults entirely.
type Locations struct {
	RunDirOverride    string
	SitesJSONOverride string
}

// RunDir returns the directory holding one subdirectory per running site.
func (l Locations) RunDir() (string, error) {
	candidates := defaultCandidates(runtime.GOOS, homeDir(), os.Getenv, "run")
	if l.RunDirOverride != "" {
		candidates = []string{ExpandHome(l.RunDirOverride)}
	}
	if p, ok := firstExisting(candidates); ok {
		return p, nil
	}
	return "", fmt.Errorf("%w (checked %s); set LOCAL_RUN_DIR to override", ErrRunDirNotFound, strings.Join(candidates, ", "))
}

// SitesJSON returns the path of Local's site registry.
func (l Locations) SitesJSON() (string, error) {
	candidates := defaultCandidates(runtime.GOOS, homeDir(), os.Getenv, "sites.json")
	if l.SitesJSONOverride != "" {
		candidates = []string{ExpandHome(l.SitesJSONOverride)}
	}
	if p, ok := firstExisting(candidates); ok {
		return p, nil
	}
	return "", fmt.Errorf("%w (checked %s); set LOCAL_SITES_JSON to override", ErrConfigNotFound, strings.Join(candidates, ", "))
}

// defaultCandidates lists where Local keeps leaf ("run" or "sites.json") on
// the given platform, most likely first.
func defaultCandidates(goos, home string, getenv func(string) string, leaf string) []string {
	var out []string
	switch goos {
	case "darwin":
		out = append(out, filepath.Join(home, "Library", "Application Support", "Local", leaf))
	case "windows":
		for _, env := range []string{"LOCALAPPDATA", "APPDATA"} {
			if v := getenv(env); v != "" {
				out = append(out, filepath.Join(v, "Local", leaf))
			}
		}
	default:
		out = append(out,
			filepath.Join(home, ".config", "Local", leaf),
			filepath.Join(home, ".local", "share", "Local", leaf),
		)
	}
	return out
}

func firstExisting(paths []string) (string, bool) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

func homeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home := homeDir()
	if home == "" {
		return path
	}
	return home + path[1:]
}

// NormalizeSitePath expands ~ and returns a clean absolute path.
func NormalizeSitePath(p string) string {
	p = ExpandHome(p)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// isWithin reports whether dir equals root or is nested below it.
func isWithin(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
