package site

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFilesystemScanner_MostRecent(t *testing.T) {
	runDir := t.TempDir()
	makeRunningSite(t, runDir, "older", "10001")
	makeRunningSite(t, runDir, "newer", "10002")
	makeRunningSite(t, runDir, "oldest", "10003")

	now := time.Now()
	setSocketMtime(t, runDir, "oldest", now.Add(-3*time.Hour))
	setSocketMtime(t, runDir, "older", now.Add(-2*time.Hour))
	setSocketMtime(t, runDir, "newer", now.Add(-1*time.Minute))

	f := &FilesystemScanner{Locations: Locations{RunDirOverride: runDir}}
	info, err := f.MostRecent(context.Background())
	if err != nil {
		t.Fatalf("MostRecent: %v", err)
	}
	if info.SiteID != "newer" {
		t.Errorf("SiteID = %q, want newer", info.SiteID)
	}
	if info.Port != "10002" {
		t.Errorf("Port = %q, want 10002", info.Port)
	}
}

func TestFilesystemScanner_skipsIncomplete(t *testing.T) {
	runDir := t.TempDir()
	makeRunningSite(t, runDir, "complete", "10001")
	setSocketMtime(t, runDir, "complete", time.Now().Add(-time.Hour))

	// Newer socket but no my.cnf.
	noCnf := filepath.Join(runDir, "nocnf", "mysql")
	if err := os.MkdirAll(noCnf, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(noCnf, "mysqld.sock"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	// Stray file in the run dir.
	if err := os.WriteFile(filepath.Join(runDir, "README"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := &FilesystemScanner{Locations: Locations{RunDirOverride: runDir}}
	info, err := f.FindSite(context.Background())
	if err != nil {
		t.Fatalf("FindSite: %v", err)
	}
	if info.SiteID != "complete" {
		t.Errorf("SiteID = %q, want complete", info.SiteID)
	}
}

func TestFilesystemScanner_errors(t *testing.T) {
	empty := t.TempDir()
	f := &FilesystemScanner{Locations: Locations{RunDirOverride: empty}}
	if _, err := f.MostRecent(context.Background()); !errors.Is(err, ErrNoRunningSites) {
		t.Errorf("empty run dir: err = %v, want ErrNoRunningSites", err)
	}

	f = &FilesystemScanner{Locations: Locations{RunDirOverride: filepath.Join(empty, "missing")}}
	if _, err := f.MostRecent(context.Background()); !errors.Is(err, ErrRunDirNotFound) {
		t.Errorf("missing run dir: err = %v, want ErrRunDirNotFound", err)
	}
}
