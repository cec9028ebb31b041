package lowering

import (
	"fmt"
	"regexp"
	"strconv"
)

// mangle flattens a module/class/original/arity tuple into the single
// flat namespace the VM operates over (spec.md §4.3):
//
//	$_M<module>[_C<class>]_I<original>[_A<arity>]
//
// hasArity distinguishes functions (always mangled with an arity suffix)
// from variables and classes (never).
func mangle(module, class, original string, arity int, hasArity bool) string {
	s := "$_M" + module
	if class != "" {
		s += "_C" + class
	}
	s += "_I" + original
	if hasArity {
		s += "_A" + strconv.Itoa(arity)
	}
	return s
}

var unmangleRe = regexp.MustCompile(`^\$_M(.*?)(?:_C(.*?))?_I(.*?)(?:_A(\d+))?$`)

// unmangle renders a mangled name back to readable text for diagnostics.
// It is not guaranteed lossless for identifiers that themselves contain
// the literal marker sequences "_C"/"_I"/"_A"; the mangling scheme gives
// it no other way to tell a marker from part of a name.
func unmangle(mangled string) string {
	m := unmangleRe.FindStringSubmatch(mangled)
	if m == nil {
		return mangled
	}
	module, class, original, arity := m[1], m[2], m[3], m[4]
	s := module
	if class != "" {
		s += "." + class
	}
	s += "." + original
	if arity != "" {
		s += fmt.Sprintf("/%s", arity)
	}
	return s
}
