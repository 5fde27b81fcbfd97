package shellspark

import (
	"sync"

	"github.com/roach88/shellspark/internal/compiler"
	"github.com/roach88/shellspark/internal/tools"
)

// Toolset binds compilation to one concrete set of host binaries. It
// carries the discovery registry and the compile cache together, so two
// Toolsets never poison each other's memoization. Most callers use the
// process-wide default implicitly through Pipeline.Compile; construct
// one explicitly to pin tools for tests, containers, or hermetic builds.
type Toolset struct {
	compiler *compiler.Compiler
}

// ToolsetConfig overrides tool discovery. Every field is optional; an
// empty field falls back to the SHELLSPARK_* environment overrides and
// then to PATH discovery. Values may be absolute paths or bare names.
type ToolsetConfig struct {
	Awk  string
	Grep string
	Sort string
	JQ   string

	// TmpDir seeds `sort -T`. Empty falls back to TMPDIR, then /tmp.
	TmpDir string
}

// NewToolset builds an isolated Toolset from the environment plus the
// given overrides.
func NewToolset(cfg ToolsetConfig) *Toolset {
	base := tools.FromEnv()
	if cfg.Awk != "" {
		base.AwkOverride = cfg.Awk
	}
	if cfg.Grep != "" {
		base.GrepOverride = cfg.Grep
	}
	if cfg.Sort != "" {
		base.SortOverride = cfg.Sort
	}
	if cfg.JQ != "" {
		base.JQOverride = cfg.JQ
	}
	if cfg.TmpDir != "" {
		base.TmpDir = cfg.TmpDir
	}
	return &Toolset{compiler: compiler.New(tools.NewRegistry(base))}
}

var (
	defaultToolsetMu sync.Mutex
	defaultToolset   *Toolset
)

// DefaultToolset returns the process-wide Toolset, created from the
// environment on first use.
func DefaultToolset() *Toolset {
	defaultToolsetMu.Lock()
	defer defaultToolsetMu.Unlock()
	if defaultToolset == nil {
		defaultToolset = &Toolset{compiler: compiler.Default()}
	}
	return defaultToolset
}

// Fingerprint digests every resolution and capability flag; it changes
// iff the bound toolset changes, and forms half of the compile-cache
// key.
func (t *Toolset) Fingerprint() (string, error) {
	return t.compiler.Registry().Fingerprint()
}

// CPUCount reports the processor count the toolset resolved, the value
// AUTO parallelism and GNU sort sizing use.
func (t *Toolset) CPUCount() int {
	return t.compiler.Registry().CPUCount()
}

// ClearCaches drops this toolset's compile cache and forgets its tool
// resolutions, for use after installing tools or changing overrides.
func (t *Toolset) ClearCaches() {
	t.compiler.ClearCache()
	t.compiler.Registry().Clear()
}

// ToolInfo describes one resolved binary for diagnostics.
type ToolInfo struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
	Path    string `json:"path,omitempty"`
	Variant string `json:"variant,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// Tools resolves the whole toolset and reports each binary, in the
// order the emitters depend on them.
func (t *Toolset) Tools() []ToolInfo {
	registry := t.compiler.Registry()
	var infos []ToolInfo

	if awk, err := registry.ResolveAwk(); err == nil {
		infos = append(infos, ToolInfo{Name: "awk", Present: true, Path: awk.Path, Variant: string(awk.Variant)})
	} else {
		infos = append(infos, ToolInfo{Name: "awk"})
	}

	if grep, err := registry.ResolveGrep(); err == nil {
		infos = append(infos, ToolInfo{Name: "grep", Present: true, Path: grep.Path, Variant: string(grep.Variant)})
	} else {
		infos = append(infos, ToolInfo{Name: "grep"})
	}

	if sortTool, err := registry.ResolveSort(); err == nil {
		info := ToolInfo{Name: "sort", Present: true, Path: sortTool.Path}
		if sortTool.SupportsParallel {
			info.Notes = "parallel"
		}
		infos = append(infos, info)
	} else {
		infos = append(infos, ToolInfo{Name: "sort"})
	}

	if jq, ok := registry.ResolveJQ(); ok {
		infos = append(infos, ToolInfo{Name: "jq", Present: true, Path: jq.Path})
	} else {
		infos = append(infos, ToolInfo{Name: "jq"})
	}

	return infos
}

// CompileWith lowers the pipeline against a specific Toolset.
func (p *Pipeline) CompileWith(ts *Toolset) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return ts.compiler.Compile(p.root)
}
