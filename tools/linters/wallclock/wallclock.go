// Package wallclock reports direct reads of the wall clock.
//
// Two rules apply:
//
//   - In packages that make ordering decisions (domain, dedup, lifecycle) every
//     time.Now() is reported. Those packages take a domain.Clock so survivor
//     selection and timestamps are reproducible in tests.
//   - Everywhere else time.Now() must be followed by .UTC() so stored and
//     logged timestamps share one zone.
//
// A //nolint or //nolint:wallclock comment on the same line or the line
// above suppresses the report.
package wallclock

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer is the wallclock analyzer.
var Analyzer = &analysis.Analyzer{
	Name: "wallclock",
	Doc:  "reports time.Now() in clock-injected packages and time.Now() without .UTC() elsewhere",
	Run:  run,
}

// clockInjected lists import path fragments of packages that must use domain.Clock.
var clockInjected = []string{
	"/internal/domain",
	"/internal/application/dedup",
	"/internal/application/lifecycle",
}

const (
	msgInjected = "use the injected domain.Clock instead of time.Now()"
	msgUTC      = "time.Now() should be followed by .UTC() for timezone consistency"
)

func run(pass *analysis.Pass) (any, error) {
	strict := isClockInjected(pass.Pkg.Path())

	for _, file := range pass.Files {
		withUTC := make(map[*ast.CallExpr]bool)
		ast.Inspect(file, func(n ast.Node) bool {
			sel, ok := n.(*ast.SelectorExpr)
			if !ok || sel.Sel.Name != "UTC" {
				return true
			}
			if call, ok := sel.X.(*ast.CallExpr); ok && isTimeNow(pass, call) {
				withUTC[call] = true
			}
			return true
		})

		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok || !isTimeNow(pass, call) {
				return true
			}
			if suppressed(pass, file, call) {
				return true
			}
			switch {
			case strict:
				pass.Reportf(call.Pos(), msgInjected)
			case !withUTC[call]:
				pass.Reportf(call.Pos(), msgUTC)
			}
			return true
		})
	}

	return nil, nil
}

func isClockInjected(path string) bool {
	for _, fragment := range clockInjected {
		if strings.HasSuffix(path, fragment) || strings.Contains(path, fragment+"/") {
			return true
		}
	}
	return false
}

// isTimeNow resolves the callee through type info so renamed imports are caught.
func isTimeNow(pass *analysis.Pass, call *ast.CallExpr) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Now" {
		return false
	}
	fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
	if !ok || fn.Pkg() == nil {
		return false
	}
	return fn.Pkg().Path() == "time"
}

func suppressed(pass *analysis.Pass, file *ast.File, call *ast.CallExpr) bool {
	line := pass.Fset.Position(call.Pos()).Line

	for _, cg := range file.Comments {
		for _, c := range cg.List {
			commentLine := pass.Fset.Position(c.Pos()).Line
			if commentLine != line && commentLine != line-1 {
				continue
			}
			text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
			directive, _, _ := strings.Cut(text, " ")
			if directive == "nolint" {
				return true
			}
			if linters, ok := strings.CutPrefix(directive, "nolint:"); ok {
				for _, name := range strings.Split(linters, ",") {
					if name == pass.Analyzer.Name {
						return true
					}
				}
			}
		}
	}
	return false
}
