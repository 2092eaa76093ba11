// internal/sim/script.go
package sim

import (
	"errors"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// maxScriptLen bounds the source length of a script expression.
// The program is compiled once at startup; evaluation cost is then
// bounded by the compiled AST size, so a pathological expression
// cannot stall a tick.
const maxScriptLen = 512

// script is a compiled single-variable expression. The only bound
// variable is t, the elapsed seconds since engine start.
type script struct {
	program *vm.Program
}

// compileScript compiles expression source once. A compile failure is
// reported to the caller (for a startup warning) but still yields a
// usable script: eval on a nil program fails, which freezes the point.
func compileScript(src string) (*script, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return &script{}, errors.New("script: empty expression")
	}
	if len(src) > maxScriptLen {
		return &script{}, errors.New("script: expression too long")
	}

	program, err := expr.Compile(src, expr.Env(map[string]interface{}{"t": float64(0)}))
	if err != nil {
		return &script{}, err
	}
	return &script{program: program}, nil
}

// eval runs the compiled program with t bound to elapsed. Any
// failure, including a non-numeric result, reports !ok so the caller
// can hold the previous value.
func (s *script) eval(elapsed float64) (float64, bool) {
	if s == nil || s.program == nil {
		return 0, false
	}

	out, err := expr.Run(s.program, map[string]interface{}{"t": elapsed})
	if err != nil {
		return 0, false
	}

	switch v := out.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	default:
		return 0, false
	}
}
