// Package bytecode defines the instruction set the lowering pass emits
// and the VM consumes, and the binary wire format those instructions
// are persisted in (spec.md §4.7, §6).
//
// Every instruction is written as a 32-bit little-endian opcode header
// followed by opcode-specific operands; strings carry a length prefix
// that counts their own trailing NUL. CreateBlock and CreateFunction
// additionally carry a 64-bit absolute stream position for their body,
// resolved by the Emitter before the record is finalized.
package bytecode

// Op identifies one VM instruction. Values are stable across format
// versions; adding an opcode must append, never renumber.
type Op uint32

const (
	OpIncBlockLevel Op = iota
	OpDecBlockLevel
	OpIncReadLevel
	OpDecReadLevel

	OpCreateBlock
	OpCreateFunction
	OpGoToBlock
	OpGoToIfTrue
	OpGoToIfFalse

	OpCallFunction
	OpCallNativeFunction
	OpInvokeMethod

	OpCreateVar
	OpStackPopObject
	OpLoadInteger
	OpLoadFloat
	OpLoadString
	OpLoadNull
	OpLoadVariable
	OpClearVar
	OpDeleteVar

	OpPush
	OpClear

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpBitAnd
	OpBitOr
	OpBitXor
	OpLogAnd
	OpLogOr
	OpEql
	OpNeql
	OpLt
	OpGt
	OpLte
	OpGte

	OpAssign
	OpAddAssign
	OpSubAssign
	OpMulAssign
	OpDivAssign
	OpModAssign

	OpUnaryNeg
	OpUnaryNot
	OpUnaryPreInc
	OpUnaryPreDec
	OpUnaryPostInc
	OpUnaryPostDec

	OpIfStatement
	OpElseStatement

	OpLeaveFunction
	OpLeaveBlock

	OpAddMember
	// OpLoadMember is not in spec.md §6's representative wire table (that
	// table is explicitly non-exhaustive): it is the opcode that actually
	// dereferences a script-object's member map for a MemberAccess tail
	// that is a Variable, pairing with OpAddMember's member-creation side
	// (spec.md §4.9's AddMember wording implies member reads go through
	// the same Object, but never names the opcode that performs one).
	OpLoadMember
	OpLoopBreak
	OpLoopContinue
	OpCreateNativeClassInstance
	// OpCreateObject materializes a fresh, empty script-object Value
	// tagged with a class name, the missing counterpart to
	// OpCreateNativeClassInstance for New expressions targeting a
	// user-defined class rather than a host-bound one (spec.md §4.4's
	// New row never names the opcode that actually allocates the
	// instance before AddMember starts populating it).
	OpCreateObject

	opCount
)

var opNames = [opCount]string{
	OpIncBlockLevel:             "INC_BLOCK_LEVEL",
	OpDecBlockLevel:             "DEC_BLOCK_LEVEL",
	OpIncReadLevel:              "INC_READ_LEVEL",
	OpDecReadLevel:              "DEC_READ_LEVEL",
	OpCreateBlock:               "CREATE_BLOCK",
	OpCreateFunction:            "CREATE_FUNCTION",
	OpGoToBlock:                 "GO_TO_BLOCK",
	OpGoToIfTrue:                "GO_TO_IF_TRUE",
	OpGoToIfFalse:               "GO_TO_IF_FALSE",
	OpCallFunction:              "CALL_FUNCTION",
	OpCallNativeFunction:        "CALL_NATIVE_FUNCTION",
	OpInvokeMethod:              "INVOKE_METHOD",
	OpCreateVar:                 "CREATE_VAR",
	OpStackPopObject:            "STACK_POP_OBJECT",
	OpLoadInteger:               "LOAD_INTEGER",
	OpLoadFloat:                 "LOAD_FLOAT",
	OpLoadString:                "LOAD_STRING",
	OpLoadNull:                  "LOAD_NULL",
	OpLoadVariable:              "LOAD_VARIABLE",
	OpClearVar:                  "CLEAR_VAR",
	OpDeleteVar:                 "DELETE_VAR",
	OpPush:                      "OP_PUSH",
	OpClear:                     "OP_CLEAR",
	OpAdd:                       "OP_ADD",
	OpSub:                       "OP_SUB",
	OpMul:                       "OP_MUL",
	OpDiv:                       "OP_DIV",
	OpMod:                       "OP_MOD",
	OpPow:                       "OP_POW",
	OpBitAnd:                    "OP_BITAND",
	OpBitOr:                     "OP_BITOR",
	OpBitXor:                    "OP_BITXOR",
	OpLogAnd:                    "OP_LOGAND",
	OpLogOr:                     "OP_LOGOR",
	OpEql:                       "OP_EQL",
	OpNeql:                      "OP_NEQL",
	OpLt:                        "OP_LT",
	OpGt:                        "OP_GT",
	OpLte:                       "OP_LTE",
	OpGte:                       "OP_GTE",
	OpAssign:                    "OP_ASSIGN",
	OpAddAssign:                 "OP_ADD_ASSIGN",
	OpSubAssign:                 "OP_SUB_ASSIGN",
	OpMulAssign:                 "OP_MUL_ASSIGN",
	OpDivAssign:                 "OP_DIV_ASSIGN",
	OpModAssign:                 "OP_MOD_ASSIGN",
	OpUnaryNeg:                  "OP_UNARY_NEG",
	OpUnaryNot:                  "OP_UNARY_NOT",
	OpUnaryPreInc:               "OP_UNARY_PRE_INC",
	OpUnaryPreDec:               "OP_UNARY_PRE_DEC",
	OpUnaryPostInc:              "OP_UNARY_POST_INC",
	OpUnaryPostDec:              "OP_UNARY_POST_DEC",
	OpIfStatement:               "IF_STATEMENT",
	OpElseStatement:             "ELSE_STATEMENT",
	OpLeaveFunction:             "LEAVE_FUNCTION",
	OpLeaveBlock:                "LEAVE_BLOCK",
	OpAddMember:                 "ADD_MEMBER",
	OpLoadMember:                "LOAD_MEMBER",
	OpLoopBreak:                 "LOOP_BREAK",
	OpLoopContinue:              "LOOP_CONTINUE",
	OpCreateNativeClassInstance: "CREATE_NATIVE_CLASS_INSTANCE",
	OpCreateObject:              "CREATE_OBJECT",
}

func (op Op) String() string {
	if op < opCount {
		if s := opNames[op]; s != "" {
			return s
		}
	}
	return "UNKNOWN_OP"
}

// Auxiliary stack ids (spec.md §3). Only the first two are used by the
// current lowering rules; the other two are reserved, per the spec's
// open-question resolution to keep the enum size and document the
// unused slots rather than shrink it.
const (
	StackFunctionParam = iota
	StackFunctionCallback
	stackReserved2
	stackReserved3
)

// Block types recorded by CreateBlock, distinguishing what kind of
// construct a forward-declared body belongs to.
const (
	BlockUndefined = iota
	BlockIfStatement
	BlockElseStatement
	BlockLabel
)

// Variable slot types. The source language is dynamically typed, so
// every CreateVar in the current grammar uses VarTypeAny; the field
// exists because the wire format carries it and a future typed surface
// could populate it.
const (
	VarTypeAny = iota
)
