package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shellspark"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeNotFound   = "E002" // Query file not found
	ErrCodeBadQuery   = "E003" // Query file failed to decode
	ErrCodePlan       = "E101" // Plan invariant violation
	ErrCodeToolset    = "E102" // Required tool missing
	ErrCodeExecution  = "E103" // Pipeline execution failed
)

// QueryFile is the YAML surface for a pipeline. Operations apply in list
// order, mirroring the builder API one to one.
type QueryFile struct {
	Source string     `yaml:"source"`
	Glob   bool       `yaml:"glob"`
	Parse  *ParseSpec `yaml:"parse"`
	Ops    []OpSpec   `yaml:"ops"`
}

// ParseSpec declares the input format.
type ParseSpec struct {
	Format    string `yaml:"format"`
	Delimiter string `yaml:"delimiter"`
	Header    *bool  `yaml:"header"`
}

// OpSpec is one pipeline operation; exactly one field may be set.
type OpSpec struct {
	Filter   *FilterSpec   `yaml:"filter"`
	Select   []string      `yaml:"select"`
	GroupBy  []string      `yaml:"group_by"`
	Agg      []AggEntry    `yaml:"agg"`
	Sort     *SortSpec     `yaml:"sort"`
	Limit    int           `yaml:"limit"`
	Distinct bool          `yaml:"distinct"`
	Parallel *ParallelSpec `yaml:"parallel"`
}

// FilterSpec is a filter operation; column "line" targets the raw record.
type FilterSpec struct {
	Column string `yaml:"column"`
	Op     string `yaml:"op"`
	Value  any    `yaml:"value"`
}

// AggEntry is one aggregated output column.
type AggEntry struct {
	Alias  string `yaml:"alias"`
	Column string `yaml:"column"`
	Fn     string `yaml:"fn"`
}

// SortSpec is a sort operation.
type SortSpec struct {
	Key     string `yaml:"key"`
	Desc    bool   `yaml:"desc"`
	Numeric bool   `yaml:"numeric"`
}

// ParallelSpec requests multi-file parallelism; Workers is a count or
// "auto".
type ParallelSpec struct {
	Workers any `yaml:"workers"`
}

// LoadError represents an error that occurred during query loading.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadQuery reads a YAML query file and builds the pipeline.
func LoadQuery(path string) (*shellspark.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading query file: %v", err)}
	}

	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, &LoadError{Code: ErrCodeBadQuery, Message: fmt.Sprintf("decoding %s: %v", path, err)}
	}
	return BuildPipeline(&qf)
}

// BuildPipeline translates a decoded query file into builder calls.
func BuildPipeline(qf *QueryFile) (*shellspark.Pipeline, error) {
	if qf.Source == "" {
		return nil, &LoadError{Code: ErrCodeBadQuery, Message: "query file has no source"}
	}

	var p *shellspark.Pipeline
	if qf.Glob {
		p = shellspark.FromGlob(qf.Source)
	} else {
		p = shellspark.From(qf.Source)
	}

	if qf.Parse != nil {
		var opts []shellspark.ParseOption
		if qf.Parse.Delimiter != "" {
			opts = append(opts, shellspark.WithDelimiter(qf.Parse.Delimiter))
		}
		if qf.Parse.Header != nil && !*qf.Parse.Header {
			opts = append(opts, shellspark.WithoutHeader())
		}
		p = p.Parse(shellspark.Format(qf.Parse.Format), opts...)
	}

	for i, op := range qf.Ops {
		next, err := applyOp(p, op)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeBadQuery, Message: fmt.Sprintf("ops[%d]: %v", i, err)}
		}
		p = next
	}
	return p, nil
}

func applyOp(p *shellspark.Pipeline, op OpSpec) (*shellspark.Pipeline, error) {
	switch {
	case op.Filter != nil:
		f := op.Filter
		if f.Column == "" {
			return nil, fmt.Errorf("filter needs a column (use \"line\" for raw records)")
		}
		fop, err := shellspark.ParseOp(f.Op)
		if err != nil {
			return nil, err
		}
		if f.Column == "line" {
			pattern, ok := f.Value.(string)
			if !ok {
				return nil, fmt.Errorf("line filter value must be a string")
			}
			return p.FilterLine(fop, pattern), nil
		}
		return p.FilterCol(f.Column, fop, f.Value), nil

	case len(op.Select) > 0:
		return p.Select(op.Select...), nil

	case len(op.GroupBy) > 0:
		return p.GroupBy(op.GroupBy...), nil

	case len(op.Agg) > 0:
		items := make([]shellspark.AggItem, 0, len(op.Agg))
		for _, entry := range op.Agg {
			item, err := shellspark.AggAs(entry.Alias, entry.Column, entry.Fn)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return p.Agg(items...), nil

	case op.Sort != nil:
		var opts []shellspark.SortOption
		if op.Sort.Desc {
			opts = append(opts, shellspark.Desc())
		}
		if op.Sort.Numeric {
			opts = append(opts, shellspark.Numeric())
		}
		return p.Sort(op.Sort.Key, opts...), nil

	case op.Limit > 0:
		return p.Limit(op.Limit), nil

	case op.Distinct:
		return p.Distinct(), nil

	case op.Parallel != nil:
		workers, err := parseWorkers(op.Parallel.Workers)
		if err != nil {
			return nil, err
		}
		return p.Parallel(workers), nil

	default:
		return nil, fmt.Errorf("operation sets no recognized field")
	}
}

func parseWorkers(v any) (int, error) {
	switch val := v.(type) {
	case nil:
		return shellspark.AutoWorkers, nil
	case string:
		if val == "auto" || val == "" {
			return shellspark.AutoWorkers, nil
		}
		return 0, fmt.Errorf("parallel workers: want a count or \"auto\", got %q", val)
	case int:
		return val, nil
	default:
		return 0, fmt.Errorf("parallel workers: want a count or \"auto\", got %T", v)
	}
}
