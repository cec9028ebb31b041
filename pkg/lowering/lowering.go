// Package lowering implements the AST-to-bytecode pass described by
// spec.md §4.3–§4.6: it walks a *ast.Module, tracks compile-time scope
// levels and a walking (module, self) context, mangles every declared
// name into the VM's flat namespace, and emits bytecode.Instructions
// through a bytecode.Emitter. Diagnostics are accumulated into a
// diag.Bag; a non-empty bag means the caller must not hand the emitted
// bytes to the VM (spec.md §7).
package lowering

import (
	"bytes"
	"os"

	"github.com/kristofer/zen/pkg/ast"
	"github.com/kristofer/zen/pkg/bytecode"
	"github.com/kristofer/zen/pkg/diag"
)

// selfCtx is the compile-time (mangled instance name, class) pair
// spec.md §4.6 calls "self". The zero value is SELF_GLOBAL (Class nil).
type selfCtx struct {
	mangled string
	class   *ast.ClassDef
}

var selfGlobal = selfCtx{}

// selfMemberName is the reserved per-method parameter every class
// method receives implicitly, bound by the same StackPopObject
// convention as a regular argument (see lowerFunctionDef). It is not
// part of spec.md §4.5's literal table: the table's Self row assumes a
// "self.mangled_name" is already on hand, but a method body is lowered
// once for every instance that will ever call it, so that mangled name
// cannot be a per-instance constant. Binding self as an implicit first
// parameter is the minimal change that keeps the rest of §4.5's Self
// row ("LoadVariable <self.mangled_name>") true as written.
const selfMemberName = "self"

// Lowering is the mutable state threaded through one compile pass. A
// fresh Lowering lowers exactly one top-level module (imports are
// inlined into the same instance).
type Lowering struct {
	bag     *diag.Bag
	emitter *bytecode.Emitter

	moduleName   string
	knownModules map[string]bool
	loadedFiles  map[string]bool

	classTypes map[string]*ast.ClassDef
	levels     []*level
	self       selfCtx

	newCounter  int
	nextBlockID int32
	blockIDs    []int32 // active block id stack, -1 sentinel at top level

	baseDir  string
	readFile func(path string) ([]byte, error)
}

// New creates a Lowering ready to lower mod, whose source file lives in
// dir (used to resolve relative `import "..."` paths).
func New(mode bytecode.Mode, dir string) *Lowering {
	return &Lowering{
		bag:          &diag.Bag{},
		emitter:      bytecode.NewEmitter(mode),
		knownModules: make(map[string]bool),
		loadedFiles:  make(map[string]bool),
		classTypes:   make(map[string]*ast.ClassDef),
		blockIDs:     []int32{-1},
		baseDir:      dir,
		readFile:     os.ReadFile,
	}
}

// Diagnostics returns the accumulated diagnostic bag.
func (lw *Lowering) Diagnostics() *diag.Bag { return lw.bag }

// Lower runs the full pass over mod and returns the assembled program.
// The caller must check Diagnostics().HasErrors() before using the
// returned bytes (spec.md §7: lowering never halts on its own errors,
// but the pipeline must refuse to write/run bytecode once any were
// recorded).
func (lw *Lowering) Lower(mod *ast.Module) *bytecode.Program {
	lw.moduleName = mod.Name
	lw.knownModules[mod.Name] = true
	lw.pushLevel(bytecode.BlockUndefined, false) // global level -1

	for _, child := range mod.Children {
		lw.lowerStmt(child)
	}

	raw := lw.emitter.Finish()
	framed := bytecode.EncodeBytes(bytecode.Magic, bytecode.FormatVersion, raw)
	prog, err := bytecode.Decode(bytes.NewReader(framed))
	if err != nil {
		// The emitter only ever produces bytes this package itself wrote;
		// a decode failure here means a lowering bug, not a user error.
		panic(err)
	}
	return prog
}
