package emit

import (
	"strings"

	"github.com/roach88/shellspark/internal/plan"
	"github.com/roach88/shellspark/internal/tools"
)

// EmitGrep renders one raw-line predicate. Consecutive LineFilters become
// a pipe chain, never a fused invocation: grep has no conjunction syntax
// across whole lines.
func EmitGrep(tool tools.GrepTool, f plan.LineFilter, format StreamFormat) (Fragment, error) {
	var flags []string
	pattern := f.Pattern

	switch f.Kind {
	case plan.LineContains:
		if tool.SupportsFixedStrings {
			flags = append(flags, "-F")
		}
	case plan.LineRegex:
		if tool.Variant == tools.GrepClassic {
			flags = append(flags, "-E")
		}
	case plan.LineStartsWith:
		if tool.Variant == tools.GrepClassic {
			flags = append(flags, "-E")
		}
		pattern = "^" + escapeRegex(f.Pattern)
	case plan.LineEndsWith:
		if tool.Variant == tools.GrepClassic {
			flags = append(flags, "-E")
		}
		pattern = escapeRegex(f.Pattern) + "$"
	default:
		return Fragment{}, plan.NewPlanError(plan.ErrCodeBadOperand, "line_filter", "grep emitter cannot express %q", f.Kind)
	}

	if tool.Variant == tools.GrepRipgrep {
		// Suppress per-file prefixes so multi-file globs stay parseable.
		flags = append(flags, "--no-filename")
	}

	quoted, err := Single(pattern)
	if err != nil {
		return Fragment{}, err
	}

	parts := append([]string{tool.Path}, flags...)
	parts = append(parts, quoted)
	return Fragment{Cmd: strings.Join(parts, " "), In: format, Out: format}, nil
}

// escapeRegex neutralizes extended-regex metacharacters so startswith and
// endswith anchor a literal.
func escapeRegex(s string) string {
	const special = `\.^$*+?{}[]|()`
	var b strings.Builder
	for _, r := range s {
		if r < 128 && strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
