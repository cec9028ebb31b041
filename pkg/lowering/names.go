package lowering

// classSegment returns the _C segment mangle should use for the
// current compile-time self context, "" when self is SELF_GLOBAL
// (spec.md §4.3).
func (lw *Lowering) classSegment() string {
	if lw.self.class == nil {
		return ""
	}
	return lw.self.class.Name
}

func (lw *Lowering) mangleVar(original string) string {
	return mangle(lw.moduleName, lw.classSegment(), original, 0, false)
}

func (lw *Lowering) mangleFunc(original string, arity int) string {
	return mangle(lw.moduleName, lw.classSegment(), original, arity, true)
}
