package site

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfigNotFound  = errors.New("site registry (sites.json) not found or unreadable")
	ErrRunDirNotFound  = errors.New("run directory not found")
	ErrNoActiveProcess = errors.New("no active Local MySQL process found")
	ErrNoRunningSites  = errors.New("no running Local sites found")
	ErrSiteNotFound    = errors.New("site not found in Local registry")
	ErrSiteNotRunning  = errors.New("site is not running")
	ErrCombinedScan    = errors.New("no running Local site found by process or filesystem scan")
)

// CombinedScanError is returned when both the process scan and the
// filesystem scan failed. errors.Is matches ErrCombinedScan and either cause.
type CombinedScanError struct {
	Process    error
	Filesystem error
}

func (e *CombinedScanError) Error() string {
	var parts []string
	if e.Process != nil {
		parts = append(parts, "process scan: "+e.Process.Error())
	}
	if e.Filesystem != nil {
		parts = append(parts, "filesystem scan: "+e.Filesystem.Error())
	}
	return fmt.Sprintf("%s (%s)", ErrCombinedScan, strings.Join(parts, " | "))
}

func (e *CombinedScanError) Is(target error) bool {
	return target == ErrCombinedScan
}

func (e *CombinedScanError) Unwrap() []error {
	var errs []error
	if e.Process != nil {
		errs = append(errs, e.Process)
	}
	if e.Filesystem != nil {
		errs = append(errs, e.Filesystem)
	}
	return errs
}

// ResolveError is the terminal error of Selector.Resolve. Tried lists every
// strategy that was attempted, in order.
type ResolveError struct {
	Tried []Method
	Err   error
}

func (e *ResolveError) Error() string {
	tried := make([]string, len(e.Tried))
	for i, m := range e.Tried {
		tried[i] = string(m)
	}
	return fmt.Sprintf("resolve Local site (tried %s): %v", strings.Join(tried, ", "), e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
