package emit

import (
	"strconv"
	"strings"

	"github.com/roach88/shellspark/internal/plan"
	"github.com/roach88/shellspark/internal/tools"
)

// SortSpec parameterizes one sort stage: the resolved 1-based key
// position, the stream delimiter ("" for whitespace), and the host's
// capabilities.
type SortSpec struct {
	Node      plan.Sort
	Position  int
	Delimiter string
	CPUs      int
	TmpDir    string
}

// EmitSort renders `sort -t<delim> -k<pos>,<pos>[r][n]` plus the GNU
// throughput flags when the registry reports them, and always a -T spool
// directory so large inputs never fill the default temp volume's root.
func EmitSort(tool tools.SortTool, spec SortSpec, format StreamFormat) Fragment {
	parts := []string{tool.Path}
	if spec.Delimiter != "" {
		parts = append(parts, "-t"+Arg(spec.Delimiter))
	}

	key := "-k" + strconv.Itoa(spec.Position) + "," + strconv.Itoa(spec.Position)
	if spec.Node.Descending {
		key += "r"
	}
	if spec.Node.Numeric {
		key += "n"
	}
	parts = append(parts, key)

	if tool.SupportsParallel && spec.CPUs > 1 {
		parts = append(parts, "--parallel="+strconv.Itoa(spec.CPUs))
		if tool.SupportsBufferSize {
			parts = append(parts, "-S 80%")
		}
	}

	tmp := spec.TmpDir
	if tmp == "" {
		tmp = "/tmp"
	}
	parts = append(parts, "-T", Arg(tmp))

	return Fragment{Cmd: strings.Join(parts, " "), In: format, Out: format}
}

// EmitDistinct renders deduplication: `sort -u` when the stage stands
// alone, or `uniq` when an upstream sort already ordered the stream.
func EmitDistinct(tool tools.SortTool, afterSort bool, format StreamFormat) Fragment {
	if afterSort {
		return Fragment{Cmd: "uniq", In: format, Out: format}
	}
	return Fragment{Cmd: tool.Path + " -u", In: format, Out: format}
}

// EmitLimit renders `head -n <n>`.
func EmitLimit(n int, format StreamFormat) Fragment {
	return Fragment{Cmd: "head -n " + strconv.Itoa(n), In: format, Out: format}
}
