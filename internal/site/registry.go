package site

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// RegistrySource yields a freshly loaded registry on every call.
type RegistrySource interface {
	Load() (*Registry, error)
}

// RegistryLoader reads sites.json from disk. It does not cache; callers that
// need a stable view across lookups should hold on to the returned Registry.
type RegistryLoader struct {
	Locations Locations
}

// Load implements RegistrySource.
func (l *RegistryLoader) Load() (*Registry, error) {
	path, err := l.Locations.SitesJSON()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigNotFound, err)
	}
	reg, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigNotFound, path, err)
	}
	return reg, nil
}

// Registry is Local's id -> site mapping, in file order.
type Registry struct {
	sites *orderedmap.OrderedMap[string, Entry]
}

// ParseRegistry decodes the contents of sites.json. Entries without an "id"
// field take it from their key.
func ParseRegistry(data []byte) (*Registry, error) {
	raw := orderedmap.New[string, Entry]()
	if err := json.Unmarshal(data, raw); err != nil {
		return nil, err
	}
	sites := orderedmap.New[string, Entry](raw.Len())
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		e := pair.Value
		e.ID = pair.Key
		sites.Set(pair.Key, e)
	}
	return &Registry{sites: sites}, nil
}

// NewRegistry builds a registry from entries, keyed by Entry.ID, in order.
func NewRegistry(entries ...Entry) *Registry {
	sites := orderedmap.New[string, Entry](len(entries))
	for _, e := range entries {
		sites.Set(e.ID, e)
	}
	return &Registry{sites: sites}
}

// Len returns the number of sites.
func (r *Registry) Len() int {
	return r.sites.Len()
}

// Get returns the site with the given id.
func (r *Registry) Get(id string) (Entry, bool) {
	return r.sites.Get(id)
}

// FindByName returns the first site whose name matches, ignoring case.
func (r *Registry) FindByName(name string) (Entry, bool) {
	for pair := r.sites.Oldest(); pair != nil; pair = pair.Next() {
		if strings.EqualFold(pair.Value.Name, name) {
			return pair.Value, true
		}
	}
	return Entry{}, false
}

// FindByPath returns the first site whose directory equals dir or contains it.
func (r *Registry) FindByPath(dir string) (Entry, bool) {
	dir = NormalizeSitePath(dir)
	for pair := r.sites.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Path == "" {
			continue
		}
		if isWithin(NormalizeSitePath(pair.Value.Path), dir) {
			return pair.Value, true
		}
	}
	return Entry{}, false
}

// Entries returns all sites in file order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, r.sites.Len())
	for pair := r.sites.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// IDs returns all site ids in file order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, r.sites.Len())
	for pair := r.sites.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Names returns all site names in file order.
func (r *Registry) Names() []string {
	out := make([]string, 0, r.sites.Len())
	for pair := r.sites.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.Name)
	}
	return out
}

// BuildInfoFromEntry builds Info for a registry site running under runDir.
// The port comes from the registry's mysql service, then my.cnf, then 3306.
func BuildInfoFromEntry(runDir string, e Entry) (Info, error) {
	siteDir := filepath.Join(runDir, e.ID)
	info := Info{
		SocketPath: filepath.Join(siteDir, filepath.FromSlash(socketRelPath)),
		SiteID:     e.ID,
		ConfigPath: filepath.Join(siteDir, filepath.FromSlash(configRelPath)),
		Port:       DefaultPort,
	}
	if !exists(info.SocketPath) {
		return Info{}, fmt.Errorf("%w: %q (%s), expected socket at %s; start the site in Local",
			ErrSiteNotRunning, e.Name, e.ID, info.SocketPath)
	}
	if port, ok := e.MySQLPort(); ok {
		info.Port = fmt.Sprint(port)
	} else if data, err := os.ReadFile(info.ConfigPath); err == nil {
		if p, ok := parsePort(string(data)); ok {
			info.Port = p
		}
	}
	return info, nil
}

// ListStatuses reports every registry site and whether its socket exists.
// When the run directory cannot be found every site is reported as stopped.
func ListStatuses(reg *Registry, loc Locations) []Status {
	runDir, _ := loc.RunDir()
	entries := reg.Entries()
	out := make([]Status, 0, len(entries))
	for _, e := range entries {
		running := runDir != "" && exists(filepath.Join(runDir, e.ID, filepath.FromSlash(socketRelPath)))
		out = append(out, Status{
			ID:      e.ID,
			Name:    e.Name,
			Path:    NormalizeSitePath(e.Path),
			Domain:  e.Domain,
			Running: running,
		})
	}
	return out
}
