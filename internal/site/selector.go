package site

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultScanTimeout bounds each of the process and filesystem scans.
const DefaultScanTimeout = 10 * time.Second

// SiteFinder is one automatic detection strategy.
type SiteFinder interface {
	FindSite(ctx context.Context) (Info, error)
}

// Selector resolves exactly one site through a fixed priority chain:
// explicit id, explicit name, working directory, process scan, filesystem
// scan. The first strategy that positively identifies a site wins.
type Selector struct {
	// SiteID and SiteName are explicit overrides. When set, a miss is fatal.
	SiteID   string
	SiteName string

	Registry   RegistrySource
	Processes  SiteFinder
	Filesystem SiteFinder
	// RunDir locates running sites for registry-based selection.
	RunDir func() (string, error)
	Getwd  func() (string, error)

	// ScanTimeout bounds each scan stage; zero disables the bound.
	ScanTimeout time.Duration
	Logger      *zap.SugaredLogger
}

// Options configures NewSelector.
type Options struct {
	SiteID      string
	SiteName    string
	Locations   Locations
	ScanTimeout time.Duration
}

// NewSelector wires a Selector to the real registry, ps(1) and run directory.
func NewSelector(opts Options, log *zap.SugaredLogger) *Selector {
	return &Selector{
		SiteID:      opts.SiteID,
		SiteName:    opts.SiteName,
		Registry:    &RegistryLoader{Locations: opts.Locations},
		Processes:   &ProcessScanner{Lister: PSLister{}, Logger: log},
		Filesystem:  &FilesystemScanner{Locations: opts.Locations, Logger: log},
		RunDir:      opts.Locations.RunDir,
		Getwd:       os.Getwd,
		ScanTimeout: opts.ScanTimeout,
		Logger:      log,
	}
}

type stageOutcome int

const (
	// stageSkipped: the stage does not apply (e.g. no override set).
	stageSkipped stageOutcome = iota
	// stageFallthrough: attempted without a positive match; try the next.
	stageFallthrough
	stageResolved
	// stageTerminal: resolution must stop with err.
	stageTerminal
)

type stageResult struct {
	outcome stageOutcome
	sel     Selection
	err     error
}

func skipped() stageResult                 { return stageResult{outcome: stageSkipped} }
func fallthroughWith(err error) stageResult { return stageResult{outcome: stageFallthrough, err: err} }
func terminal(err error) stageResult        { return stageResult{outcome: stageTerminal, err: err} }
func resolved(sel Selection) stageResult    { return stageResult{outcome: stageResolved, sel: sel} }

// Resolve runs the chain once. Terminal failures are *ResolveError.
func (s *Selector) Resolve(ctx context.Context) (Selection, error) {
	log := logger(s.Logger)

	// The filesystem stage reports the process stage's failure with its own.
	var processErr error
	stages := []struct {
		method Method
		run    func(context.Context) stageResult
	}{
		{MethodExplicitID, s.byID},
		{MethodExplicitName, s.byName},
		{MethodCwdMatch, s.byCwd},
		{MethodProcessScan, func(ctx context.Context) stageResult {
			r := s.byScan(ctx, s.Processes, MethodProcessScan)
			processErr = r.err
			return r
		}},
		{MethodFilesystemScan, func(ctx context.Context) stageResult {
			r := s.byScan(ctx, s.Filesystem, MethodFilesystemScan)
			if r.outcome == stageFallthrough {
				return terminal(&CombinedScanError{Process: processErr, Filesystem: r.err})
			}
			return r
		}},
	}

	var tried []Method
	for _, st := range stages {
		r := st.run(ctx)
		if r.outcome == stageSkipped {
			continue
		}
		tried = append(tried, st.method)
		switch r.outcome {
		case stageResolved:
			log.Debugw("selected site",
				"site", r.sel.SiteName, "method", r.sel.Method,
				"path", r.sel.SitePath, "domain", r.sel.Domain,
				"socket", r.sel.Info.SocketPath)
			return r.sel, nil
		case stageTerminal:
			return Selection{}, &ResolveError{Tried: tried, Err: r.err}
		default:
			log.Debugw("selection stage did not match", "method", st.method, "reason", r.err)
		}
	}
	// Unreachable: the filesystem stage never falls through.
	return Selection{}, &ResolveError{Tried: tried, Err: ErrCombinedScan}
}

func (s *Selector) byID(context.Context) stageResult {
	if s.SiteID == "" {
		return skipped()
	}
	reg, err := s.Registry.Load()
	if err != nil {
		return terminal(err)
	}
	e, ok := reg.Get(s.SiteID)
	if !ok {
		return terminal(fmt.Errorf("%w: id %q; available ids: %s",
			ErrSiteNotFound, s.SiteID, strings.Join(reg.IDs(), ", ")))
	}
	return s.fromEntry(e, MethodExplicitID, terminal)
}

func (s *Selector) byName(context.Context) stageResult {
	if s.SiteName == "" {
		return skipped()
	}
	reg, err := s.Registry.Load()
	if err != nil {
		return terminal(err)
	}
	e, ok := reg.FindByName(s.SiteName)
	if !ok {
		return terminal(fmt.Errorf("%w: name %q; available sites: %s",
			ErrSiteNotFound, s.SiteName, strings.Join(reg.Names(), ", ")))
	}
	return s.fromEntry(e, MethodExplicitName, terminal)
}

func (s *Selector) byCwd(context.Context) stageResult {
	if s.Getwd == nil {
		return skipped()
	}
	cwd, err := s.Getwd()
	if err != nil {
		return fallthroughWith(err)
	}
	logger(s.Logger).Debugw("checking working directory", "cwd", cwd)
	reg, err := s.Registry.Load()
	if err != nil {
		return fallthroughWith(err)
	}
	e, ok := reg.FindByPath(cwd)
	if !ok {
		return fallthroughWith(fmt.Errorf("%s is not inside any Local site", cwd))
	}
	return s.fromEntry(e, MethodCwdMatch, fallthroughWith)
}

// fromEntry builds a Selection for a registry entry; onErr decides whether a
// site that is not running ends resolution or defers to the next stage.
func (s *Selector) fromEntry(e Entry, m Method, onErr func(error) stageResult) stageResult {
	runDir, err := s.RunDir()
	if err != nil {
		return onErr(err)
	}
	info, err := BuildInfoFromEntry(runDir, e)
	if err != nil {
		return onErr(err)
	}
	return resolved(Selection{
		Info:     info,
		SiteName: e.Name,
		SitePath: NormalizeSitePath(e.Path),
		Domain:   e.Domain,
		Method:   m,
	})
}

func (s *Selector) byScan(ctx context.Context, f SiteFinder, m Method) stageResult {
	info, err := withTimeout(ctx, s.ScanTimeout, f.FindSite)
	if err != nil {
		return fallthroughWith(err)
	}
	return resolved(s.enrich(info, m))
}

// enrich fills name, path and domain from the registry when it is available.
func (s *Selector) enrich(info Info, m Method) Selection {
	sel := Selection{
		Info:     info,
		SiteName: info.SiteID,
		SitePath: "unknown",
		Domain:   "unknown",
		Method:   m,
	}
	reg, err := s.Registry.Load()
	if err != nil {
		logger(s.Logger).Debugw("registry unavailable for enrichment", "err", err)
		return sel
	}
	if e, ok := reg.Get(info.SiteID); ok {
		sel.SiteName = e.Name
		sel.SitePath = NormalizeSitePath(e.Path)
		sel.Domain = e.Domain
	}
	return sel
}

// withTimeout runs fn under a deadline. fn may ignore ctx (file system
// calls do), so the result is abandoned rather than awaited on timeout.
func withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) (Info, error)) (Info, error) {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		info Info
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		info, err := fn(ctx)
		ch <- result{info, err}
	}()
	select {
	case r := <-ch:
		return r.info, r.err
	case <-ctx.Done():
		return Info{}, fmt.Errorf("scan timed out after %s: %w", d, ctx.Err())
	}
}
