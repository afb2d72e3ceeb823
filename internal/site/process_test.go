package site

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestProcessScanner_FindConfigPath(t *testing.T) {
	localCnf := "/Users/me/Library/Application Support/Local/run/abc123/conf/mysql/my.cnf"
	tests := []struct {
		name    string
		lines   []string
		want    string
		wantErr error
	}{
		{
			name: "prefers Local run directory",
			lines: []string{
				"/usr/sbin/mysqld --defaults-file=/etc/mysql/my.cnf",
				"/Applications/Local.app/lightning-services/mysql-8.0.16/bin/mysqld --defaults-file=" + localCnf,
			},
			want: localCnf,
		},
		{
			name: "falls back to first mysqld with a defaults file",
			lines: []string{
				"/usr/sbin/nginx -g daemon off;",
				"/usr/sbin/mysqld --user=mysql",
				"/usr/sbin/mysqld --defaults-file=/etc/mysql/first.cnf",
				"/usr/sbin/mysqld --defaults-file=/etc/mysql/second.cnf",
			},
			want: "/etc/mysql/first.cnf",
		},
		{
			name: "value stops at next option",
			lines: []string{
				"mysqld --defaults-file=/home/me/.config/Local/run/x/conf/mysql/my.cnf --user=me",
			},
			want: "/home/me/.config/Local/run/x/conf/mysql/my.cnf",
		},
		{
			name:    "no mysqld",
			lines:   []string{"/bin/bash", "/usr/sbin/nginx"},
			wantErr: ErrNoActiveProcess,
		},
		{
			name:    "mysqld without defaults file",
			lines:   []string{"/usr/sbin/mysqld --user=mysql"},
			wantErr: ErrNoActiveProcess,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &ProcessScanner{Lister: fakeLister{lines: tt.lines}}
			got, err := p.FindConfigPath(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindConfigPath: %v", err)
			}
			if got != tt.want {
				t.Errorf("FindConfigPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProcessScanner_listerError(t *testing.T) {
	p := &ProcessScanner{Lister: fakeLister{err: errors.New("ps: not found")}}
	if _, err := p.FindConfigPath(context.Background()); !errors.Is(err, ErrNoActiveProcess) {
		t.Errorf("err = %v, want ErrNoActiveProcess", err)
	}
}

func TestBuildInfoFromConfig(t *testing.T) {
	runDir := t.TempDir()
	cfg := makeRunningSite(t, runDir, "site-1", "10042")

	info, err := BuildInfoFromConfig(cfg)
	if err != nil {
		t.Fatalf("BuildInfoFromConfig: %v", err)
	}
	if info.SiteID != "site-1" {
		t.Errorf("SiteID = %q, want site-1", info.SiteID)
	}
	if info.Port != "10042" {
		t.Errorf("Port = %q, want 10042", info.Port)
	}
	if want := filepath.Join(runDir, "site-1", "mysql", "mysqld.sock"); info.SocketPath != want {
		t.Errorf("SocketPath = %q, want %q", info.SocketPath, want)
	}
	if info.ConfigPath != cfg {
		t.Errorf("ConfigPath = %q, want %q", info.ConfigPath, cfg)
	}
}

func TestBuildInfoFromConfig_defaultPort(t *testing.T) {
	cfg := makeRunningSite(t, t.TempDir(), "site-2", "")
	info, err := BuildInfoFromConfig(cfg)
	if err != nil {
		t.Fatalf("BuildInfoFromConfig: %v", err)
	}
	if info.Port != DefaultPort {
		t.Errorf("Port = %q, want %q", info.Port, DefaultPort)
	}
}

func TestBuildInfoFromConfig_noSocket(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "ghost", "conf", "mysql", "my.cnf")
	if _, err := BuildInfoFromConfig(cfg); !errors.Is(err, ErrSiteNotRunning) {
		t.Errorf("err = %v, want ErrSiteNotRunning", err)
	}
}

func TestProcessScanner_FindSite(t *testing.T) {
	runDir := t.TempDir()
	cfg := makeRunningSite(t, runDir, "live", "10003")
	p := &ProcessScanner{Lister: fakeLister{lines: []string{"mysqld --defaults-file=" + cfg}}}
	info, err := p.FindSite(context.Background())
	if err != nil {
		t.Fatalf("FindSite: %v", err)
	}
	if info.SiteID != "live" || info.Port != "10003" {
		t.Errorf("FindSite() = %+v", info)
	}
}
