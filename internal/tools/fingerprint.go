package tools

import (
	"fmt"

	"github.com/roach88/shellspark/internal/plan"
)

// Fingerprint returns a stable digest of every resolution and capability
// flag. It changes iff any resolution changes, and forms half of the
// compile-cache key. The digest is computed once and retained until
// Clear.
func (r *Registry) Fingerprint() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fingerprint != "" {
		return r.fingerprint, nil
	}

	r.resolveAwkLocked()
	r.resolveGrepLocked()
	r.resolveSortLocked()
	r.resolveJQLocked()
	r.cpuCountLocked()

	summary := map[string]any{
		"awk":  toolEntry(!r.awkAbsent, map[string]any{"path": r.awk.Path, "variant": string(r.awk.Variant)}),
		"grep": toolEntry(!r.grepAbsent, map[string]any{
			"path":           r.grep.Path,
			"variant":        string(r.grep.Variant),
			"fixed_strings":  r.grep.SupportsFixedStrings,
			"extended_regex": r.grep.SupportsExtendedRE,
		}),
		"sort": toolEntry(!r.sortAbsent, map[string]any{
			"path":        r.sortTool.Path,
			"parallel":    r.sortTool.SupportsParallel,
			"buffer_size": r.sortTool.SupportsBufferSize,
		}),
		"jq":      toolEntry(!r.jqAbsent, map[string]any{"path": r.jq.Path}),
		"cpus":    r.cpus,
		"tmp_dir": r.cfg.TmpDir,
	}

	canonical, err := plan.CanonicalMap(summary)
	if err != nil {
		return "", fmt.Errorf("toolset fingerprint: %w", err)
	}
	r.fingerprint = plan.HashWithDomain(plan.DomainToolset, canonical)
	return r.fingerprint, nil
}

func toolEntry(present bool, fields map[string]any) map[string]any {
	if !present {
		return map[string]any{"absent": true}
	}
	return fields
}
