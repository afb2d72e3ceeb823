package site

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

// FilesystemScanner picks the most recently active site in the run directory.
type FilesystemScanner struct {
	Locations Locations
	Logger    *zap.SugaredLogger
}

type fsCandidate struct {
	siteID     string
	socketPath string
	configPath string
	mtime      time.Time
}

// FindSite implements SiteFinder using MostRecent.
func (f *FilesystemScanner) FindSite(ctx context.Context) (Info, error) {
	return f.MostRecent(ctx)
}

// MostRecent returns the site whose socket was modified last, among run
// directory entries that have both a socket and a my.cnf.
func (f *FilesystemScanner) MostRecent(ctx context.Context) (Info, error) {
	runDir, err := f.Locations.RunDir()
	if err != nil {
		return Info{}, err
	}
	log := logger(f.Logger)
	log.Debugw("scanning run directory", "dir", runDir)

	entries, err := os.ReadDir(runDir)
	if err != nil {
		return Info{}, fmt.Errorf("read run directory: %w", err)
	}

	var candidates []fsCandidate
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return Info{}, err
		}
		if !e.IsDir() {
			continue
		}
		siteDir := filepath.Join(runDir, e.Name())
		c := fsCandidate{
			siteID:     e.Name(),
			socketPath: filepath.Join(siteDir, filepath.FromSlash(socketRelPath)),
			configPath: filepath.Join(siteDir, filepath.FromSlash(configRelPath)),
		}
		st, err := os.Stat(c.socketPath)
		if err != nil || !exists(c.configPath) {
			continue
		}
		c.mtime = st.ModTime()
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return Info{}, fmt.Errorf("%w in %s", ErrNoRunningSites, runDir)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].mtime.After(candidates[j].mtime)
	})
	chosen := candidates[0]
	log.Debugw("filesystem scan selected site", "site_id", chosen.siteID, "candidates", len(candidates))
	return BuildInfoFromConfig(chosen.configPath)
}
