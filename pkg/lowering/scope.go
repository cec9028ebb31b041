package lowering

import "github.com/kristofer/zen/pkg/ast"

// varSlot is what a level remembers about one declared variable: whether
// it has since been promoted to a class instance by New, and if so which
// class (spec.md §4.4/§4.5 New row).
type varSlot struct {
	mangled string
	isClass bool
	class   *ast.ClassDef
}

// funcEntry is one function recorded in a level's ordered function list.
type funcEntry struct {
	mangled  string
	def      *ast.FunctionDef
	arity    int
	isNative bool
}

// fnLookupStatus mirrors spec.md §4.4's fnInScope result set.
type fnLookupStatus int

const (
	fnFound fnLookupStatus = iota
	fnTooFewArgs
	fnTooManyArgs
	fnNotFound
)

// level is one entry of the lowering-time scope stack, mirroring the
// runtime block/function frame it will produce. isFunctionBoundary marks
// the frame pushed immediately after a CreateFunction record, which is
// where Return's enclosing-block counting (spec.md §4.5 Return row) stops.
type level struct {
	functions          []funcEntry
	variables          map[string]*varSlot
	blockType          int32
	isFunctionBoundary bool
}

func newLevel(blockType int32, isFunctionBoundary bool) *level {
	return &level{variables: make(map[string]*varSlot), blockType: blockType, isFunctionBoundary: isFunctionBoundary}
}

func (lw *Lowering) pushLevel(blockType int32, isFunctionBoundary bool) {
	lw.levels = append(lw.levels, newLevel(blockType, isFunctionBoundary))
}

func (lw *Lowering) popLevel() {
	lw.levels = lw.levels[:len(lw.levels)-1]
}

func (lw *Lowering) top() *level {
	return lw.levels[len(lw.levels)-1]
}

// declareVar records a new variable slot in the current level, keyed by
// its original (unmangled) name.
func (lw *Lowering) declareVar(original, mangled string) *varSlot {
	slot := &varSlot{mangled: mangled}
	lw.top().variables[original] = slot
	return slot
}

// lookupVar walks from the current level down to the global level
// looking for original.
func (lw *Lowering) lookupVar(original string) (*varSlot, bool) {
	for i := len(lw.levels) - 1; i >= 0; i-- {
		if slot, ok := lw.levels[i].variables[original]; ok {
			return slot, true
		}
	}
	return nil, false
}

// declareFunc records a function in the current level's ordered list.
func (lw *Lowering) declareFunc(original, mangled string, arity int, def *ast.FunctionDef) {
	lw.top().functions = append(lw.top().functions, funcEntry{mangled: mangled, def: def, arity: arity, isNative: def != nil && def.IsNative})
}

// lookupFunc walks from the current level down to the global level
// looking for a function named original callable with arity args. The
// returned name is the mangled bytecode entry point for a script
// function, or the bare original identifier for one declared
// `is_native` (spec.md §4.5's FunctionDefinition row carries is_native
// without saying how calls route differently; native bindings are
// resolved by the host's exact-name-match convention, not a mangled
// address, so a native declaration's call target is its own name).
func (lw *Lowering) lookupFunc(original string, arity int) (string, fnLookupStatus, bool) {
	sawName := false
	bestStatus := fnNotFound
	for i := len(lw.levels) - 1; i >= 0; i-- {
		for _, fe := range lw.levels[i].functions {
			if fe.def.Name != original {
				continue
			}
			sawName = true
			if fe.arity == arity {
				if fe.isNative {
					return fe.def.Name, fnFound, true
				}
				return fe.mangled, fnFound, false
			}
			if arity < fe.arity {
				bestStatus = fnTooFewArgs
			} else {
				bestStatus = fnTooManyArgs
			}
		}
	}
	if !sawName {
		return "", fnNotFound, false
	}
	return "", bestStatus, false
}

// isIdentifierCollision reports whether original already occupies a
// variable, function, or class-type slot reachable from the current
// level (spec.md §4.3's isIdentifier collision rule). thisScopeOnly
// restricts the search to the current level.
func (lw *Lowering) isIdentifierCollision(original string, thisScopeOnly bool) bool {
	if _, ok := lw.classTypes[original]; ok {
		return true
	}
	start := len(lw.levels) - 1
	end := 0
	if thisScopeOnly {
		end = start
	}
	for i := start; i >= end; i-- {
		if _, ok := lw.levels[i].variables[original]; ok {
			return true
		}
		for _, fe := range lw.levels[i].functions {
			if fe.def.Name == original {
				return true
			}
		}
	}
	return false
}
