package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// makeRunningSite creates <runDir>/<id> with a socket file and a my.cnf
// declaring port (omitted when empty). It returns the config path.
func makeRunningSite(t *testing.T, runDir, id, port string) string {
	t.Helper()
	siteDir := filepath.Join(runDir, id)
	if err := os.MkdirAll(filepath.Join(siteDir, "mysql"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(siteDir, "conf", "mysql"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(siteDir, "mysql", "mysqld.sock"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	conf := "[mysqld]\nbind-address = 127.0.0.1\n"
	if port != "" {
		conf += "port = " + port + "\n"
	}
	cfg := filepath.Join(siteDir, "conf", "mysql", "my.cnf")
	if err := os.WriteFile(cfg, []byte(conf), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func setSocketMtime(t *testing.T, runDir, id string, mtime time.Time) {
	t.Helper()
	sock := filepath.Join(runDir, id, "mysql", "mysqld.sock")
	if err := os.Chtimes(sock, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

// fakeRegistry serves a fixed registry or error and counts loads.
type fakeRegistry struct {
	reg   *Registry
	err   error
	loads int
}

func (f *fakeRegistry) Load() (*Registry, error) {
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return f.reg, nil
}

// fakeFinder records calls and returns configured values.
type fakeFinder struct {
	findFn func(ctx context.Context) (Info, error)
	called bool
}

func (f *fakeFinder) FindSite(ctx context.Context) (Info, error) {
	f.called = true
	return f.findFn(ctx)
}

// fakeLister returns fixed process command lines.
type fakeLister struct {
	lines []string
	err   error
}

func (f fakeLister) CommandLines(context.Context) ([]string, error) {
	return f.lines, f.err
}
