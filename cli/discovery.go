package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Registration is one loader.Register call found in a module source file
type Registration struct {
	File   string
	Kind   string
	Module string
	Line   int
}

// ModuleFile is a source file the loader would consider, with its registrations
type ModuleFile struct {
	Path          string
	Registrations []Registration
	Err           error
}

// isModuleSource applies the loader's file rules: Go sources, no leading
// underscore, no tests.
func isModuleSource(name string) bool {
	return strings.HasSuffix(name, ".go") &&
		!strings.HasPrefix(name, "_") &&
		!strings.HasSuffix(name, "_test.go")
}

// scanDir lists the module sources directly in dir, without descending into
// subdirectories. A file that fails to parse is reported and does not stop the scan.
func scanDir(dir string) ([]ModuleFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan modules: %w", err)
	}

	var files []ModuleFile
	for _, e := range entries {
		if e.IsDir() || !isModuleSource(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		regs, err := parseRegistrations(path)
		files = append(files, ModuleFile{Path: path, Registrations: regs, Err: err})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// parseRegistrations finds calls of the form loader.Register(kind, &Module{}).
// The package may import the loader under another name.
func parseRegistrations(path string) ([]Registration, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	alias := loaderAlias(node)
	if alias == "" {
		return nil, nil
	}

	var regs []Registration
	ast.Inspect(node, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok || len(call.Args) != 2 {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "Register" {
			return true
		}
		if ident, ok := sel.X.(*ast.Ident); !ok || ident.Name != alias {
			return true
		}
		regs = append(regs, Registration{
			File:   path,
			Kind:   kindName(call.Args[0], alias),
			Module: moduleName(call.Args[1]),
			Line:   fset.Position(call.Pos()).Line,
		})
		return true
	})
	return regs, nil
}

func loaderAlias(f *ast.File) string {
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil || !strings.HasSuffix(p, "/loader") {
			continue
		}
		if imp.Name != nil {
			return imp.Name.Name
		}
		return "loader"
	}
	return ""
}

// kindName resolves string literals and the loader's own Cogs constant
func kindName(expr ast.Expr, alias string) string {
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind == token.STRING {
			if s, err := strconv.Unquote(e.Value); err == nil {
				return s
			}
		}
	case *ast.SelectorExpr:
		if ident, ok := e.X.(*ast.Ident); ok && ident.Name == alias && e.Sel.Name == "Cogs" {
			return "cogs"
		}
	}
	return types.ExprString(expr)
}

// moduleName strips the address-of and composite literal around the module type
func moduleName(expr ast.Expr) string {
	if u, ok := expr.(*ast.UnaryExpr); ok && u.Op == token.AND {
		expr = u.X
	}
	if lit, ok := expr.(*ast.CompositeLit); ok && lit.Type != nil {
		return types.ExprString(lit.Type)
	}
	return types.ExprString(expr)
}

// defaultModuleDirs returns every package directory directly under commands/
func defaultModuleDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), "_") {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs, nil
}

func newModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules [dir...]",
		Short: "List command module sources and their loader registrations",
		Long: `Scan each directory (non-recursively) for Go sources the bot would build as
command modules and report the loader.Register calls in them. Without arguments
every package under ./commands is scanned.`,
		RunE: runModules,
	}
}

func runModules(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	dirs := args
	if len(dirs) == 0 {
		var err error
		if dirs, err = defaultModuleDirs("commands"); err != nil {
			return fmt.Errorf("no directory given and ./commands is unreadable: %w", err)
		}
	}

	total := 0
	for _, dir := range dirs {
		files, err := scanDir(dir)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, heading(dir))
		for _, f := range files {
			switch {
			case f.Err != nil:
				fmt.Fprintf(out, "  %s %s: %v\n", failMark("✘"), filepath.Base(f.Path), f.Err)
			case len(f.Registrations) == 0:
				fmt.Fprintf(out, "    %s\n", filepath.Base(f.Path))
			default:
				for _, r := range f.Registrations {
					fmt.Fprintf(out, "  %s %s:%d registers %s as %s\n", okMark("✔"), filepath.Base(f.Path), r.Line, r.Module, r.Kind)
					total++
				}
			}
		}
	}
	fmt.Fprintf(out, "\n%d module registration(s) found\n", total)
	return nil
}
