// Package diag implements the compile-time diagnostic model used by the
// lexer, parser, and lowering pass.
//
// Diagnostics are accumulated rather than raised immediately: every stage
// that finds a problem appends a Diagnostic to a Bag and keeps going
// whenever partial work is still well-defined, so that a single pass can
// surface many independent mistakes instead of stopping at the first one.
// If the Bag is non-empty once a stage finishes, the pipeline must not
// proceed to the next stage (no bytecode is written, no VM is invoked).
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the full diagnostic taxonomy. Every compile-time error the
// toolchain can produce is one of these.
type Kind int

const (
	InternalError Kind = iota
	IllegalSyntax
	IllegalExpression
	IllegalOperator
	UnbalancedExpression
	UnexpectedCharacter
	UnexpectedIdentifier
	UnexpectedToken
	UnrecognizedEscapeSequence
	UnterminatedStringLiteral
	AlreadyDefined
	ArgumentAfterKeywordArgs
	ArgumentAfterVariadicArgs
	FunctionNotFound
	TooManyArgs
	TooFewArgs
	RedeclaredIdentifier
	UndeclaredIdentifier
	ExpectedIdentifier
	AmbiguousIdentifier
	InvalidConstructor
	UnknownClassType
	ExpectedToken
	UnexpectedEndOfFile
	ExpectedModuleDeclaration
	ModuleNotFound
	ModuleAlreadyDefined
	ImportOutsideGlobal
	SelfNotDefined
)

var kindNames = map[Kind]string{
	InternalError:              "INTERNAL_ERROR",
	IllegalSyntax:              "ILLEGAL_SYNTAX",
	IllegalExpression:          "ILLEGAL_EXPRESSION",
	IllegalOperator:            "ILLEGAL_OPERATOR",
	UnbalancedExpression:       "UNBALANCED_EXPRESSION",
	UnexpectedCharacter:        "UNEXPECTED_CHARACTER",
	UnexpectedIdentifier:       "UNEXPECTED_IDENTIFIER",
	UnexpectedToken:            "UNEXPECTED_TOKEN",
	UnrecognizedEscapeSequence: "UNRECOGNIZED_ESCAPE_SEQUENCE",
	UnterminatedStringLiteral:  "UNTERMINATED_STRING_LITERAL",
	AlreadyDefined:             "ALREADY_DEFINED",
	ArgumentAfterKeywordArgs:   "ARGUMENT_AFTER_KEYWORD_ARGS",
	ArgumentAfterVariadicArgs:  "ARGUMENT_AFTER_VARIADIC_ARGS",
	FunctionNotFound:           "FUNCTION_NOT_FOUND",
	TooManyArgs:                "TOO_MANY_ARGS",
	TooFewArgs:                 "TOO_FEW_ARGS",
	RedeclaredIdentifier:       "REDECLARED_IDENTIFIER",
	UndeclaredIdentifier:       "UNDECLARED_IDENTIFIER",
	ExpectedIdentifier:         "EXPECTED_IDENTIFIER",
	AmbiguousIdentifier:        "AMBIGUOUS_IDENTIFIER",
	InvalidConstructor:         "INVALID_CONSTRUCTOR",
	UnknownClassType:           "UNKNOWN_CLASS_TYPE",
	ExpectedToken:              "EXPECTED_TOKEN",
	UnexpectedEndOfFile:        "UNEXPECTED_END_OF_FILE",
	ExpectedModuleDeclaration:  "EXPECTED_MODULE_DECLARATION",
	ModuleNotFound:             "MODULE_NOT_FOUND",
	ModuleAlreadyDefined:       "MODULE_ALREADY_DEFINED",
	ImportOutsideGlobal:        "IMPORT_OUTSIDE_GLOBAL",
	SelfNotDefined:             "SELF_NOT_DEFINED",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN_DIAGNOSTIC"
}

// Location is a source position: file path, 1-based line, 1-based column.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Diagnostic is one reported problem: a kind, where it happened, and the
// parameters to splice into the kind's message template.
type Diagnostic struct {
	Kind   Kind
	Loc    Location
	Params []string
}

// Message renders the diagnostic as human text, e.g.
// "UNDECLARED_IDENTIFIER: \"y\"".
func (d Diagnostic) Message() string {
	if len(d.Params) == 0 {
		return d.Kind.String()
	}
	quoted := make([]string, len(d.Params))
	for i, p := range d.Params {
		quoted[i] = fmt.Sprintf("%q", p)
	}
	return fmt.Sprintf("%s: %s", d.Kind.String(), strings.Join(quoted, ", "))
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Loc, d.Message())
}

// Bag accumulates diagnostics across a compile pass and groups/sorts them
// for reporting. The zero value is ready to use.
type Bag struct {
	items []Diagnostic
}

// Add appends a diagnostic to the bag.
func (b *Bag) Add(kind Kind, loc Location, params ...string) {
	b.items = append(b.items, Diagnostic{Kind: kind, Loc: loc, Params: params})
}

// HasErrors reports whether any diagnostic has been recorded. A non-empty
// bag must halt the pipeline before bytecode is written or the VM runs.
func (b *Bag) HasErrors() bool {
	return len(b.items) > 0
}

// Len returns the number of recorded diagnostics.
func (b *Bag) Len() int {
	return len(b.items)
}

// Merge appends other's diagnostics, used when one pass (e.g. lowering
// inlining a file import) folds in the results of a nested pass (the
// imported file's own lex/parse bag).
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
}

// All returns the diagnostics grouped by source file and sorted by line
// within each file, matching the CLI reporting contract of spec.md §6.
func (b *Bag) All() []Diagnostic {
	sorted := make([]Diagnostic, len(b.items))
	copy(sorted, b.items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Loc.File != sorted[j].Loc.File {
			return sorted[i].Loc.File < sorted[j].Loc.File
		}
		if sorted[i].Loc.Line != sorted[j].Loc.Line {
			return sorted[i].Loc.Line < sorted[j].Loc.Line
		}
		return sorted[i].Loc.Column < sorted[j].Loc.Column
	})
	return sorted
}

// Report writes every diagnostic to s, one per line, grouped by file.
func (b *Bag) Report(s *strings.Builder) {
	lastFile := ""
	for _, d := range b.All() {
		if d.Loc.File != lastFile {
			if lastFile != "" {
				s.WriteString("\n")
			}
			fmt.Fprintf(s, "%s:\n", d.Loc.File)
			lastFile = d.Loc.File
		}
		fmt.Fprintf(s, "  %d:%d: %s\n", d.Loc.Line, d.Loc.Column, d.Message())
	}
}
