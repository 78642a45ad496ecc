package report

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Filter selects report rows with a boolean expression over Row, for
// example `Provider != "" && len(Classes) > 2`.
type Filter struct {
	source  string
	program *vm.Program
}

// CompileFilter compiles source. An empty source matches every row.
func CompileFilter(source string) (*Filter, error) {
	if source == "" {
		return &Filter{}, nil
	}
	program, err := expr.Compile(source, expr.Env(Row{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", source, err)
	}
	return &Filter{source: source, program: program}, nil
}

// Match reports whether row satisfies the filter.
func (f *Filter) Match(row Row) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, row)
	if err != nil {
		return false, fmt.Errorf("evaluating filter %q on unit %q: %w", f.source, row.Unit, err)
	}
	return out.(bool), nil
}

// Apply returns a copy of r holding only the matching rows.
func (f *Filter) Apply(r *Report) (*Report, error) {
	out := *r
	out.Rows = nil
	for _, row := range r.Rows {
		ok, err := f.Match(row)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Rows = append(out.Rows, row)
		}
	}
	return &out, nil
}
