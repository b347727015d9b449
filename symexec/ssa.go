package symexec

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"strings"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

type Register interface {
	Type() types.Type
	Name() string
}

func buildPackage(filename string) (*ssa.Package, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, nil, 0)
	if err != nil {
		return nil, err
	}

	files := []*ast.File{f}

	pkg := types.NewPackage(f.Name.Name, "")

	conf := &types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	main, _, err := ssautil.BuildPackage(conf, fset, pkg, files, 0)
	if err != nil {
		return nil, fmt.Errorf("build SSA for %s: %w", filename, err)
	}
	return main, nil
}

// printBlocks writes fn's blocks one instruction per line, tagged with the
// instruction kind.
func printBlocks(w io.Writer, fn *ssa.Function) {
	for _, b := range fn.Blocks {
		fmt.Fprintln(w, b.String(), "->")
		for _, v := range b.Instrs {
			name := instrKind(v)
			if reg, ok := v.(Register); ok {
				fmt.Fprintf(w, "  [%10s] %s:%s <-- %s\n", strings.ToUpper(name), reg.Name(), reg.Type(), v.String())
			} else {
				fmt.Fprintf(w, "  [%10s] %s\n", strings.ToUpper(name), v.String())
			}
		}
	}
}

func instrKind(instr ssa.Instruction) string {
	switch instr.(type) {
	case *ssa.Alloc:
		return "alloc"
	case *ssa.BinOp:
		return "binop"
	case *ssa.Call:
		return "call"
	case *ssa.ChangeType:
		return "change type"
	case *ssa.Convert:
		return "convert"
	case *ssa.DebugRef:
		return "debug ref"
	case *ssa.Extract:
		return "extract"
	case *ssa.Field:
		return "field"
	case *ssa.FieldAddr:
		return "field addr"
	case *ssa.If:
		return "if"
	case *ssa.Index:
		return "index"
	case *ssa.IndexAddr:
		return "index addr"
	case *ssa.Jump:
		return "jump"
	case *ssa.Lookup:
		return "lookup"
	case *ssa.MakeMap:
		return "make map"
	case *ssa.MakeSlice:
		return "make slice"
	case *ssa.MapUpdate:
		return "map update"
	case *ssa.Panic:
		return "panic"
	case *ssa.Phi:
		return "phi"
	case *ssa.Return:
		return "return"
	case *ssa.Select:
		return "select"
	case *ssa.Store:
		return "store"
	case *ssa.UnOp:
		return "unop"
	default:
		return "other"
	}
}
