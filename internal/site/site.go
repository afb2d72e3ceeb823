// Package site locates the MySQL instance of one running Local (Local by
// Flywheel) site. It reads Local's site registry (sites.json), inspects
// running mysqld processes and scans the run directory, and combines those
// strategies into a single priority chain (see Selector).
package site

// Fixed layout of a running site under the run directory.
const (
	socketRelPath = "mysql/mysqld.sock"
	configRelPath = "conf/mysql/my.cnf"

	// DefaultPort is used when neither the registry nor my.cnf names one.
	DefaultPort = "3306"
)

// Method records which strategy produced a Selection.
type Method string

const (
	MethodExplicitID     Method = "explicit-id"
	MethodExplicitName   Method = "explicit-name"
	MethodCwdMatch       Method = "cwd-match"
	MethodProcessScan    Method = "process-scan"
	MethodFilesystemScan Method = "filesystem-scan"
)

// Info identifies one running MySQL instance. Values are only produced by
// BuildInfoFromConfig and BuildInfoFromEntry, which verify the socket exists.
type Info struct {
	SocketPath string `json:"socket_path"`
	Port       string `json:"port"`
	SiteID     string `json:"site_id"`
	ConfigPath string `json:"config_path"`
}

// Selection is the outcome of Selector.Resolve.
type Selection struct {
	Info     Info   `json:"site_info"`
	SiteName string `json:"site_name"`
	SitePath string `json:"site_path"`
	Domain   string `json:"domain"`
	Method   Method `json:"selection_method"`
}

// Entry is one site in Local's sites.json.
type Entry struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Path     string             `json:"path"`
	Domain   string             `json:"domain"`
	Services map[string]Service `json:"services,omitempty"`
}

// Service describes one service of a site (mysql, nginx, php...).
type Service struct {
	Name    string           `json:"name,omitempty"`
	Version string           `json:"version,omitempty"`
	Ports   map[string][]int `json:"ports,omitempty"`
}

// MySQLPort returns the first port registered for the site's mysql service.
func (e Entry) MySQLPort() (int, bool) {
	svc, ok := e.Services["mysql"]
	if !ok {
		return 0, false
	}
	ports := svc.Ports["MYSQL"]
	if len(ports) == 0 || ports[0] == 0 {
		return 0, false
	}
	return ports[0], true
}

// Status is a registry entry annotated with whether its socket exists.
type Status struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	Domain  string `json:"domain"`
	Running bool   `json:"running"`
}
