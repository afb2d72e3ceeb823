package site

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// ProcessLister returns the full command line of every running process.
type ProcessLister interface {
	CommandLines(ctx context.Context) ([]string, error)
}

// PSLister lists processes with ps(1).
type PSLister struct{}

// CommandLines implements ProcessLister.
func (PSLister) CommandLines(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, "ps", "-axww", "-o", "command=").Output()
	if err != nil {
		return nil, fmt.Errorf("ps: %w", err)
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

var (
	defaultsFileRe = regexp.MustCompile(`--defaults-file=(.+)$`)
	localRunDirRe  = regexp.MustCompile(`Local[/\\]run[/\\]`)
	portRe         = regexp.MustCompile(`port\s*=\s*(\d+)`)
)

// ProcessScanner finds the site whose mysqld is currently running.
type ProcessScanner struct {
	Lister ProcessLister
	Logger *zap.SugaredLogger
}

// FindSite locates the running mysqld's config file and builds its Info.
func (p *ProcessScanner) FindSite(ctx context.Context) (Info, error) {
	configPath, err := p.FindConfigPath(ctx)
	if err != nil {
		return Info{}, err
	}
	return BuildInfoFromConfig(configPath)
}

// FindConfigPath returns the --defaults-file of a running mysqld, preferring
// one started from Local's run directory.
func (p *ProcessScanner) FindConfigPath(ctx context.Context) (string, error) {
	lines, err := p.Lister.CommandLines(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoActiveProcess, err)
	}

	var daemons []string
	for _, line := range lines {
		if strings.Contains(line, "mysqld") {
			daemons = append(daemons, line)
		}
	}
	logger(p.Logger).Debugw("process scan", "mysqld_processes", len(daemons))
	if len(daemons) == 0 {
		return "", fmt.Errorf("%w; start a Local site first", ErrNoActiveProcess)
	}

	for _, line := range daemons {
		if !localRunDirRe.MatchString(line) {
			continue
		}
		if path, ok := defaultsFile(line); ok {
			return path, nil
		}
	}
	for _, line := range daemons {
		if path, ok := defaultsFile(line); ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %d mysqld process(es) but none with --defaults-file", ErrNoActiveProcess, len(daemons))
}

// defaultsFile extracts the --defaults-file value. Local passes it last and
// its paths may contain spaces, so the value runs to the end of the line or
// to the next " --" option.
func defaultsFile(cmdline string) (string, bool) {
	m := defaultsFileRe.FindStringSubmatch(cmdline)
	if m == nil {
		return "", false
	}
	v := m[1]
	if i := strings.Index(v, " --"); i >= 0 {
		v = v[:i]
	}
	v = strings.Trim(strings.TrimSpace(v), `"'`)
	return v, v != ""
}

// BuildInfoFromConfig derives Info from a mysqld config path of the form
// <run>/<site-id>/conf/mysql/my.cnf.
func BuildInfoFromConfig(configPath string) (Info, error) {
	siteDir := filepath.Dir(filepath.Dir(filepath.Dir(configPath)))
	info := Info{
		SocketPath: filepath.Join(siteDir, filepath.FromSlash(socketRelPath)),
		SiteID:     filepath.Base(siteDir),
		ConfigPath: configPath,
		Port:       DefaultPort,
	}
	if !exists(info.SocketPath) {
		return Info{}, fmt.Errorf("%w: MySQL socket not found at %s", ErrSiteNotRunning, info.SocketPath)
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return Info{}, fmt.Errorf("read mysql config: %w", err)
	}
	if port, ok := parsePort(string(data)); ok {
		info.Port = port
	}
	return info, nil
}

func parsePort(conf string) (string, bool) {
	m := portRe.FindStringSubmatch(conf)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func logger(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
