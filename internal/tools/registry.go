package tools

import (
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// AwkVariant identifies the awk implementation family.
type AwkVariant string

const (
	AwkMawk  AwkVariant = "mawk"
	AwkGawk  AwkVariant = "gawk"
	AwkPlain AwkVariant = "awk"
)

// GrepVariant identifies the line-matcher family.
type GrepVariant string

const (
	GrepRipgrep GrepVariant = "rg"
	GrepClassic GrepVariant = "grep"
)

// AwkTool is a resolved awk binary.
type AwkTool struct {
	Path    string
	Variant AwkVariant
}

// GrepTool is a resolved grep or ripgrep binary with its capability flags.
type GrepTool struct {
	Path                 string
	Variant              GrepVariant
	SupportsFixedStrings bool
	SupportsExtendedRE   bool
}

// SortTool is a resolved sort binary with its capability flags.
type SortTool struct {
	Path               string
	SupportsParallel   bool
	SupportsBufferSize bool
}

// JQTool is a resolved jq binary.
type JQTool struct {
	Path string
}

// Registry memoizes tool discovery for the life of the process (or until
// Clear). Safe for concurrent use; a single exclusive lock guards all
// cached state, which is cheap because readers hit memoized results.
type Registry struct {
	mu  sync.Mutex
	cfg Config

	awkDone   bool
	awk       AwkTool
	awkAbsent bool

	grepDone   bool
	grep       GrepTool
	grepAbsent bool

	sortDone   bool
	sortTool   SortTool
	sortAbsent bool

	jqDone   bool
	jq       JQTool
	jqAbsent bool

	cpuDone bool
	cpus    int

	fingerprint string
}

// NewRegistry creates a Registry with the given configuration, filling in
// the real lookPath/probe defaults where the config leaves them nil.
func NewRegistry(cfg Config) *Registry {
	if cfg.LookPath == nil {
		cfg.LookPath = exec.LookPath
	}
	if cfg.Probe == nil {
		cfg.Probe = runProbe
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.TmpDir == "" {
		cfg.TmpDir = "/tmp"
	}
	if cfg.GOOS == "" {
		cfg.GOOS = runtime.GOOS
	}
	return &Registry{cfg: cfg}
}

var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
)

// Default returns the process-wide registry, created from the environment
// on first use.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry(FromEnv())
	}
	return defaultRegistry
}

// TmpDir returns the directory seeded into `sort -T`.
func (r *Registry) TmpDir() string { return r.cfg.TmpDir }

// Clear forgets every cached resolution, forcing rediscovery on the next
// resolve. The configuration is retained.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.awkDone, r.awkAbsent = false, false
	r.grepDone, r.grepAbsent = false, false
	r.sortDone, r.sortAbsent = false, false
	r.jqDone, r.jqAbsent = false, false
	r.cpuDone = false
	r.cpus = 0
	r.fingerprint = ""
}

// ResolveAwk returns the best available awk, preferring mawk over gawk
// over plain awk. Absence is fatal for every plan.
func (r *Registry) ResolveAwk() (AwkTool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolveAwkLocked()
	if r.awkAbsent {
		return AwkTool{}, NewUnsupportedEnvironment("awk", "no awk implementation found (tried mawk, gawk, awk)")
	}
	return r.awk, nil
}

func (r *Registry) resolveAwkLocked() {
	if r.awkDone {
		return
	}
	r.awkDone = true

	candidates := []string{"mawk", "gawk", "awk"}
	if r.cfg.AwkOverride != "" {
		candidates = []string{r.cfg.AwkOverride}
	}
	for _, name := range candidates {
		path, ok := r.locate(name)
		if !ok {
			continue
		}
		r.awk = AwkTool{Path: path, Variant: awkVariant(name, r.probeVersion(path))}
		return
	}
	r.awkAbsent = true
}

func awkVariant(name, version string) AwkVariant {
	base := filepath.Base(name)
	lower := strings.ToLower(version)
	switch {
	case base == "mawk" || strings.Contains(lower, "mawk"):
		return AwkMawk
	case base == "gawk" || strings.Contains(lower, "gnu awk"):
		return AwkGawk
	default:
		return AwkPlain
	}
}

// ResolveGrep returns ripgrep when available, otherwise grep. The silent
// fallback from rg to grep is deliberate; absence of both is fatal only
// for plans that need a line filter, which is when callers invoke this.
func (r *Registry) ResolveGrep() (GrepTool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolveGrepLocked()
	if r.grepAbsent {
		return GrepTool{}, NewUnsupportedEnvironment("grep", "neither rg nor grep found")
	}
	return r.grep, nil
}

func (r *Registry) resolveGrepLocked() {
	if r.grepDone {
		return
	}
	r.grepDone = true

	if r.cfg.GrepOverride != "" {
		if path, ok := r.locate(r.cfg.GrepOverride); ok {
			variant := GrepClassic
			if filepath.Base(r.cfg.GrepOverride) == "rg" {
				variant = GrepRipgrep
			}
			r.grep = GrepTool{Path: path, Variant: variant, SupportsFixedStrings: true, SupportsExtendedRE: true}
			return
		}
		r.grepAbsent = true
		return
	}

	if path, ok := r.locate("rg"); ok {
		r.grep = GrepTool{Path: path, Variant: GrepRipgrep, SupportsFixedStrings: true, SupportsExtendedRE: true}
		return
	}
	if path, ok := r.locate("grep"); ok {
		// -F and -E are POSIX; both BSD and GNU grep carry them.
		r.grep = GrepTool{Path: path, Variant: GrepClassic, SupportsFixedStrings: true, SupportsExtendedRE: true}
		return
	}
	r.grepAbsent = true
}

// ResolveSort returns the sort binary and its GNU-only capabilities.
func (r *Registry) ResolveSort() (SortTool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolveSortLocked()
	if r.sortAbsent {
		return SortTool{}, NewUnsupportedEnvironment("sort", "sort not found")
	}
	return r.sortTool, nil
}

func (r *Registry) resolveSortLocked() {
	if r.sortDone {
		return
	}
	r.sortDone = true

	name := "sort"
	if r.cfg.SortOverride != "" {
		name = r.cfg.SortOverride
	}
	path, ok := r.locate(name)
	if !ok {
		r.sortAbsent = true
		return
	}

	version := r.probeVersion(path)
	isGNU := strings.Contains(strings.ToLower(version), "gnu")
	tool := SortTool{Path: path, SupportsBufferSize: isGNU}
	if isGNU {
		// Confirm --parallel with a live probe rather than trusting the
		// version banner.
		if _, err := r.probe(path, "--parallel=1", "--version"); err == nil {
			tool.SupportsParallel = true
		}
	}
	r.sortTool = tool
}

// ResolveJQ returns the jq binary, reporting absence without error: jq is
// only required when a plan parses json, and the compiler raises the
// environment error at that point.
func (r *Registry) ResolveJQ() (JQTool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolveJQLocked()
	if r.jqAbsent {
		return JQTool{}, false
	}
	return r.jq, true
}

func (r *Registry) resolveJQLocked() {
	if r.jqDone {
		return
	}
	r.jqDone = true

	name := "jq"
	if r.cfg.JQOverride != "" {
		name = r.cfg.JQOverride
	}
	if path, ok := r.locate(name); ok {
		r.jq = JQTool{Path: path}
		return
	}
	r.jqAbsent = true
}

// CPUCount queries the OS for the processor count: sysctl on darwin,
// nproc elsewhere. Falls back to the runtime's view, and to 1 as the
// floor.
func (r *Registry) CPUCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cpuCountLocked()
	return r.cpus
}

func (r *Registry) cpuCountLocked() {
	if r.cpuDone {
		return
	}
	r.cpuDone = true

	var out string
	var err error
	if r.cfg.GOOS == "darwin" {
		if path, ok := r.locate("sysctl"); ok {
			out, err = r.probe(path, "-n", "hw.ncpu")
		}
	} else {
		if path, ok := r.locate("nproc"); ok {
			out, err = r.probe(path)
		}
	}
	if err == nil && out != "" {
		if n, perr := strconv.Atoi(strings.TrimSpace(out)); perr == nil && n > 0 {
			r.cpus = n
			return
		}
	}
	if n := runtime.NumCPU(); n > 0 {
		r.cpus = n
		return
	}
	r.cpus = 1
}

// locate resolves a name through the configured lookPath. Absolute paths
// are accepted as-is so overrides can point outside PATH.
func (r *Registry) locate(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	path, err := r.cfg.LookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}

// probeVersion asks the binary for its banner. A failed probe yields an
// empty banner, never an error: capability detection degrades, resolution
// does not.
func (r *Registry) probeVersion(path string) string {
	out, err := r.probe(path, "--version")
	if err != nil {
		return ""
	}
	return out
}

func (r *Registry) probe(path string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.ProbeTimeout)
	defer cancel()
	return r.cfg.Probe(ctx, path, args...)
}
