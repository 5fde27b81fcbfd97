package compiler

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/roach88/shellspark/internal/emit"
	"github.com/roach88/shellspark/internal/plan"
)

// streamState is the assembler's knowledge of the byte stream at the
// current point in the pipeline.
type streamState struct {
	format  emit.StreamFormat
	delim   string          // sort -t delimiter; "" means whitespace
	layout  []string        // positional columns when known
	numeric map[string]bool // columns known to hold numbers (agg outputs)
	scope   []string        // columns addressable by name; nil means all
}

func (s *streamState) position(column string) (int, bool) {
	for i, c := range s.layout {
		if c == column {
			return i + 1, true
		}
	}
	return 0, false
}

// assemble walks the optimized plan leaf to root and stitches emitter
// fragments with pipes.
func (c *Compiler) assemble(root plan.Node) (string, error) {
	nodes := plan.Chain(root)
	source := nodes[0].(plan.Source)

	// Parallel is an annotation on the whole pipeline, not a stage.
	workers := -1
	var rest []plan.Node
	for _, n := range nodes[1:] {
		if p, ok := n.(plan.Parallel); ok {
			workers = p.Workers
			continue
		}
		rest = append(rest, n)
	}

	var frags []emit.Fragment
	st := streamState{format: emit.StreamRaw, numeric: map[string]bool{}}
	lastWasSort := false
	i := 0

	// Raw line predicates ahead of any Parse.
	var pre []plan.LineFilter
	for i < len(rest) {
		lf, ok := rest[i].(plan.LineFilter)
		if !ok {
			break
		}
		pre = append(pre, lf)
		i++
	}

	var parseNode *plan.Parse
	if i < len(rest) {
		if p, ok := rest[i].(plan.Parse); ok {
			parseNode = &p
			i++
		}
	}

	switch {
	case parseNode == nil:
		for _, lf := range pre {
			frag, err := c.grepFragment(lf, st.format)
			if err != nil {
				return "", err
			}
			frags = append(frags, frag)
		}

	case parseNode.Format == plan.FormatJSON:
		// jq parses each line independently, so raw predicates stay in
		// grep ahead of it.
		for _, lf := range pre {
			frag, err := c.grepFragment(lf, st.format)
			if err != nil {
				return "", err
			}
			frags = append(frags, frag)
		}
		consumed, jsonFrags, err := c.assembleJSON(rest[i:], &st)
		if err != nil {
			return "", err
		}
		frags = append(frags, jsonFrags...)
		i += consumed

	default:
		// csv or text: one fused awk stage. Raw predicates fold into the
		// program when a header row must survive them; otherwise grep
		// stays cheaper and runs first.
		foldPre := parseNode.Format == plan.FormatCSV && parseNode.HasHeader
		if !foldPre {
			for _, lf := range pre {
				frag, err := c.grepFragment(lf, st.format)
				if err != nil {
					return "", err
				}
				frags = append(frags, frag)
			}
			pre = nil
		}
		consumed, frag, emitted, err := c.assembleFieldRun(rest[i:], *parseNode, pre, &st)
		if err != nil {
			return "", err
		}
		if emitted {
			frags = append(frags, frag)
		}
		i += consumed
	}

	// Global operators and trailing predicates.
	for i < len(rest) {
		switch node := rest[i].(type) {
		case plan.LineFilter:
			frag, err := c.grepFragment(node, st.format)
			if err != nil {
				return "", err
			}
			frags = append(frags, frag)
			i++

		case plan.Sort:
			if st.format == emit.StreamNDJSON {
				convert, err := c.convertToTSV(&st)
				if err != nil {
					return "", err
				}
				frags = append(frags, convert)
			}
			pos, ok := st.position(node.Key)
			if !ok {
				return "", plan.NewPlanError(plan.ErrCodeUnknownColumn, "sort",
					"key %q is not in the emitted layout at this stage", node.Key)
			}
			sortTool, err := c.registry.ResolveSort()
			if err != nil {
				return "", err
			}
			spec := emit.SortSpec{
				Node:      node,
				Position:  pos,
				Delimiter: st.delim,
				CPUs:      c.registry.CPUCount(),
				TmpDir:    c.registry.TmpDir(),
			}
			if st.numeric[node.Key] {
				spec.Node.Numeric = true
			}
			frags = append(frags, emit.EmitSort(sortTool, spec, st.format))
			lastWasSort = true
			i++
			continue

		case plan.Distinct:
			sortTool, err := c.registry.ResolveSort()
			if err != nil {
				return "", err
			}
			frags = append(frags, emit.EmitDistinct(sortTool, lastWasSort, st.format))
			i++
			continue

		case plan.Limit:
			frags = append(frags, emit.EmitLimit(node.N, st.format))
			i++
			continue

		case plan.ColFilter, plan.Select, plan.GroupBy:
			if st.format == emit.StreamNDJSON {
				if st.layout == nil {
					st.layout = neededColumns(rest[i:])
				}
				convert, err := c.convertToTSV(&st)
				if err != nil {
					return "", err
				}
				frags = append(frags, convert)
			}
			if st.layout == nil {
				return "", plan.NewPlanError(plan.ErrCodeUnsupported, plan.KindOf(node),
					"field-aware operation after a stage with no known column layout")
			}
			consumed, frag, err := c.assemblePositionalRun(rest[i:], &st)
			if err != nil {
				return "", err
			}
			frags = append(frags, frag)
			lastWasSort = false
			i += consumed
			continue

		default:
			return "", plan.NewPlanError(plan.ErrCodeStructure, plan.KindOf(rest[i]),
				"assembler cannot place node")
		}
		lastWasSort = false
	}

	return c.stitch(source, workers, frags)
}

// grepFragment resolves the line matcher and emits one predicate.
func (c *Compiler) grepFragment(lf plan.LineFilter, format emit.StreamFormat) (emit.Fragment, error) {
	grepTool, err := c.registry.ResolveGrep()
	if err != nil {
		return emit.Fragment{}, err
	}
	return emit.EmitGrep(grepTool, lf, format)
}

// stitch joins fragments with pipes and attaches the source per the plan:
// plain file as a trailing argument of the first command, safe globs
// likewise, everything else through find | xargs.
func (c *Compiler) stitch(source plan.Source, workers int, frags []emit.Fragment) (string, error) {
	if len(frags) == 0 {
		frags = []emit.Fragment{{Cmd: "cat", In: emit.StreamRaw, Out: emit.StreamRaw}}
	}

	cmds := make([]string, len(frags))
	for i, f := range frags {
		cmds[i] = f.Cmd
	}

	if workers >= 0 {
		n := workers
		if n == plan.AutoWorkers {
			n = c.registry.CPUCount()
		}
		dir := filepath.Dir(source.Pattern)
		name := filepath.Base(source.Pattern)
		quotedName, err := emit.Single(name)
		if err != nil {
			return "", err
		}
		prefix := "find " + emit.Arg(dir) + " -name " + quotedName +
			" -print0 | xargs -0 -P" + strconv.Itoa(n) + " " + cmds[0]
		cmds[0] = prefix
		return strings.Join(cmds, " | "), nil
	}

	if source.IsGlob {
		if globSafe(source.Pattern) {
			cmds[0] = cmds[0] + " " + source.Pattern
			return strings.Join(cmds, " | "), nil
		}
		dir := filepath.Dir(source.Pattern)
		name := filepath.Base(source.Pattern)
		quotedName, err := emit.Single(name)
		if err != nil {
			return "", err
		}
		cmds[0] = "find " + emit.Arg(dir) + " -name " + quotedName +
			" -print0 | xargs -0 " + cmds[0]
		return strings.Join(cmds, " | "), nil
	}

	cmds[0] = cmds[0] + " " + emit.Arg(source.Pattern)
	return strings.Join(cmds, " | "), nil
}

// globSafe reports whether a pattern can be handed to the shell for
// expansion verbatim: only path characters and glob metacharacters, so
// quoting cannot be required.
func globSafe(pattern string) bool {
	for _, r := range pattern {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '.' || r == '/' || r == '-' || r == '+':
		case r == '*' || r == '?' || r == '[' || r == ']':
		default:
			return false
		}
	}
	return pattern != ""
}
