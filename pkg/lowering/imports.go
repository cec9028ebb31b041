package lowering

import (
	"path/filepath"

	"github.com/kristofer/zen/pkg/ast"
	"github.com/kristofer/zen/pkg/diag"
	"github.com/kristofer/zen/pkg/parser"
)

// lowerImport implements spec.md §4.5's Import row. A module import is
// reserved and currently a no-op; a file import is lexed, parsed, and
// lowered inline into the current stream the first time it is seen.
func (lw *Lowering) lowerImport(imp *ast.Import) {
	if imp.Kind == ast.ImportModule {
		return
	}

	if len(lw.levels) != 1 {
		lw.bag.Add(diag.ImportOutsideGlobal, imp.Pos(), imp.Value)
		return
	}

	path := imp.Value
	if !filepath.IsAbs(path) {
		path = filepath.Join(lw.baseDir, path)
	}
	imp.LocalPath = path

	if lw.loadedFiles[path] {
		return
	}
	lw.loadedFiles[path] = true

	src, err := lw.readFile(path)
	if err != nil {
		lw.bag.Add(diag.ModuleNotFound, imp.Pos(), imp.Value)
		return
	}

	p := parser.New(path, string(src))
	mod := p.Parse()
	lw.bag.Merge(p.Diagnostics())

	if lw.knownModules[mod.Name] {
		lw.bag.Add(diag.ModuleAlreadyDefined, imp.Pos(), mod.Name)
		return
	}
	lw.knownModules[mod.Name] = true

	savedModule := lw.moduleName
	lw.moduleName = mod.Name
	for _, child := range mod.Children {
		lw.lowerStmt(child)
	}
	lw.moduleName = savedModule
}
