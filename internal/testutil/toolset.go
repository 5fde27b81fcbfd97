// Package testutil provides deterministic fixtures for compiler tests.
//
// The toolset fixture stands in for real binary discovery: lookups and
// probes are answered from maps, so tests never exec and emitted commands
// are byte-stable across hosts.
package testutil

import (
	"context"
	"fmt"

	"github.com/roach88/shellspark/internal/tools"
)

// ToolsetFixture describes a fake host. Binaries maps a tool name to the
// path discovery returns; names absent from the map do not exist.
// Versions maps a path to its --version banner.
type ToolsetFixture struct {
	Binaries map[string]string
	Versions map[string]string
	CPUs     int
	TmpDir   string

	// SortParallel makes the --parallel probe succeed.
	SortParallel bool
}

// FullToolset is a host with mawk, ripgrep, jq, and GNU sort, the
// combination the end-to-end scenarios assume. Paths are bare names so
// emitted commands read like the documented examples.
func FullToolset() *ToolsetFixture {
	return &ToolsetFixture{
		Binaries: map[string]string{
			"mawk":  "mawk",
			"gawk":  "gawk",
			"awk":   "awk",
			"rg":    "rg",
			"grep":  "grep",
			"sort":  "sort",
			"jq":    "jq",
			"nproc": "nproc",
		},
		Versions: map[string]string{
			"mawk": "mawk 1.3.4",
			"gawk": "GNU Awk 5.1.0",
			"awk":  "awk version 20200816",
			"grep": "grep (GNU grep) 3.7",
			"sort": "sort (GNU coreutils) 8.32",
		},
		CPUs:   4,
		TmpDir: "/tmp",
	}
}

// Without returns a copy of the fixture with the named binaries removed.
func (f *ToolsetFixture) Without(names ...string) *ToolsetFixture {
	out := *f
	out.Binaries = make(map[string]string, len(f.Binaries))
	for k, v := range f.Binaries {
		out.Binaries[k] = v
	}
	for _, name := range names {
		delete(out.Binaries, name)
	}
	return &out
}

// Registry builds a tools.Registry answering from the fixture.
func (f *ToolsetFixture) Registry() *tools.Registry {
	return tools.NewRegistry(tools.Config{
		TmpDir:   f.TmpDir,
		GOOS:     "linux",
		LookPath: f.lookPath,
		Probe:    f.probe,
	})
}

func (f *ToolsetFixture) lookPath(name string) (string, error) {
	if path, ok := f.Binaries[name]; ok {
		return path, nil
	}
	return "", fmt.Errorf("%s: not found", name)
}

func (f *ToolsetFixture) probe(_ context.Context, path string, args ...string) (string, error) {
	if path == "nproc" {
		return fmt.Sprintf("%d", f.CPUs), nil
	}
	if len(args) > 0 && args[0] == "--parallel=1" {
		if f.SortParallel {
			return f.Versions["sort"], nil
		}
		return "", fmt.Errorf("sort: unrecognized option")
	}
	if len(args) > 0 && args[0] == "--version" {
		if banner, ok := f.Versions[path]; ok {
			return banner, nil
		}
		return "", fmt.Errorf("%s: no version", path)
	}
	return "", fmt.Errorf("unexpected probe: %s %v", path, args)
}
