// Package value implements the runtime Value representation shared by
// the lowering pass's constant pool and the stack machine: a tagged
// union of null, integer, float, string, script-object, function, and
// native-handle, together with the arithmetic, comparison, and
// assignment algebra the VM needs to execute binary/unary opcodes.
//
// Every runtime failure this package can produce (type mismatch, use of
// a null operand, mutation of a const) is returned as an error wrapped
// with github.com/pkg/errors, so a caller up in pkg/vm can attach a
// call-chain trace without losing the original cause.
package value

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Kind identifies which arm of the Value union is populated.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindString
	KindObject
	KindFunction
	KindNative
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInteger:
		return "INTEGER"
	case KindFloat:
		return "FLOAT"
	case KindString:
		return "STRING"
	case KindObject:
		return "OBJECT"
	case KindFunction:
		return "FUNCTION"
	case KindNative:
		return "NATIVE"
	default:
		return "UNKNOWN"
	}
}

// Object is a script-defined instance: a class tag plus an
// insertion-ordered member map, matching the field order a class body
// declared them in so iteration and printing are deterministic.
type Object struct {
	ClassName string
	keys      []string
	members   map[string]*Value
}

// NewObject creates an empty instance of the named class.
func NewObject(className string) *Object {
	return &Object{ClassName: className, members: make(map[string]*Value)}
}

// Get looks up a member by name.
func (o *Object) Get(name string) (*Value, bool) {
	v, ok := o.members[name]
	return v, ok
}

// Set assigns a member, appending it to the key order on first sight.
func (o *Object) Set(name string, v *Value) {
	if _, exists := o.members[name]; !exists {
		o.keys = append(o.keys, name)
	}
	o.members[name] = v
}

// Keys returns member names in declaration/insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// NativeFunc is the signature every native binding must implement
// (spec.md's bind_function surface): it receives already-evaluated
// arguments and returns a single result Value or an error.
type NativeFunc func(args []*Value) (*Value, error)

// Function is a callable value: either a mangled entry point inside the
// compiled bytecode (Addr, resolved by the VM at call time) or a native
// Go closure registered through bind_function/bind_class.
type Function struct {
	Name     string
	Arity    int
	IsNative bool
	Native   NativeFunc
	Addr     int // bytecode offset of the mangled function, if !IsNative
}

// Value is the tagged union every stack slot, local, and constant pool
// entry in the VM holds.
type Value struct {
	Kind     Kind
	Int      int64
	Float    float64
	Str      string
	Obj      *Object
	Fn       *Function
	Native   interface{}
	IsConst  bool
	IsNative bool // true for values originating from a native binding
}

// Null, True, and False are convenience constructors for the constants
// the lowering pass emits most often.
func Null() *Value                  { return &Value{Kind: KindNull} }
func Int(n int64) *Value            { return &Value{Kind: KindInteger, Int: n} }
func Flt(f float64) *Value          { return &Value{Kind: KindFloat, Float: f} }
func Str(s string) *Value           { return &Value{Kind: KindString, Str: s} }
func Bool(b bool) *Value            { return Int(boolToInt(b)) }
func Obj(o *Object) *Value          { return &Value{Kind: KindObject, Obj: o} }
func Fn(f *Function) *Value         { return &Value{Kind: KindFunction, Fn: f} }
func NativeHandle(h interface{}) *Value {
	return &Value{Kind: KindNative, Native: h, IsNative: true}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// IsTruthy implements zen's truthiness rule: null and the integer/float
// zero value are falsy, everything else (including the empty string and
// every object/function/native handle) is truthy.
func (v *Value) IsTruthy() bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindInteger:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	default:
		return true
	}
}

// TypeStr returns the lowercase type name zen source code would see from
// a `type(x)` native call.
func (v *Value) TypeStr() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	case KindNative:
		return "native"
	default:
		return "unknown"
	}
}

// Str renders the value the way print()/str() would.
func (v *Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindInteger:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", v.Float), "0"), ".")
	case KindString:
		return v.Str
	case KindObject:
		return fmt.Sprintf("<%s instance>", v.Obj.ClassName)
	case KindFunction:
		return fmt.Sprintf("<function %s>", v.Fn.Name)
	case KindNative:
		return "<native>"
	default:
		return "?"
	}
}

// Errors returned by this package. Callers match on these with
// errors.Is / errors.Cause, not on string content.
var (
	ErrConstValueChanged = errors.New("cannot assign to a const value")
	ErrNullValueUsed     = errors.New("null value used in an operation that requires a value")
)

func opError(op string, a, b *Value) error {
	if b == nil {
		return errors.Errorf("invalid operand of type %s for unary operator %q", a.TypeStr(), op)
	}
	return errors.Errorf("invalid operands of type %s and %s for operator %q", a.TypeStr(), b.TypeStr(), op)
}

func requireNonNull(v *Value) error {
	if v.Kind == KindNull {
		return errors.WithStack(ErrNullValueUsed)
	}
	return nil
}

// numeric promotes two numeric operands to a common representation,
// returning (isFloat, leftF, rightF, leftI, rightI).
func numeric(a, b *Value) (isFloat bool, fa, fb float64, ia, ib int64, ok bool) {
	switch {
	case a.Kind == KindInteger && b.Kind == KindInteger:
		return false, 0, 0, a.Int, b.Int, true
	case a.Kind == KindFloat && b.Kind == KindFloat:
		return true, a.Float, b.Float, 0, 0, true
	case a.Kind == KindInteger && b.Kind == KindFloat:
		return true, float64(a.Int), b.Float, 0, 0, true
	case a.Kind == KindFloat && b.Kind == KindInteger:
		return true, a.Float, float64(b.Int), 0, 0, true
	default:
		return false, 0, 0, 0, 0, false
	}
}

// Add implements `+`, including string concatenation (spec.md §4.1: `+`
// is overloaded for String <-> anything, producing a String).
func Add(a, b *Value) (*Value, error) {
	if err := requireNonNull(a); err != nil {
		return nil, err
	}
	if err := requireNonNull(b); err != nil {
		return nil, err
	}
	if a.Kind == KindString || b.Kind == KindString {
		return Str(a.String() + b.String()), nil
	}
	if isFloat, fa, fb, ia, ib, ok := numeric(a, b); ok {
		if isFloat {
			return Flt(fa + fb), nil
		}
		return Int(ia + ib), nil
	}
	return nil, opError("+", a, b)
}

func arith(op string, a, b *Value, fi func(int64, int64) int64, ff func(float64, float64) float64) (*Value, error) {
	if err := requireNonNull(a); err != nil {
		return nil, err
	}
	if err := requireNonNull(b); err != nil {
		return nil, err
	}
	isFloat, fa, fb, ia, ib, ok := numeric(a, b)
	if !ok {
		return nil, opError(op, a, b)
	}
	if isFloat {
		return Flt(ff(fa, fb)), nil
	}
	return Int(fi(ia, ib)), nil
}

func Sub(a, b *Value) (*Value, error) {
	return arith("-", a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
}

func Mul(a, b *Value) (*Value, error) {
	return arith("*", a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
}

// Div implements `/`. Integer division by zero is a runtime error;
// float division by zero follows IEEE 754 and produces +Inf/-Inf/NaN,
// matching the source it was compiled from.
func Div(a, b *Value) (*Value, error) {
	if err := requireNonNull(a); err != nil {
		return nil, err
	}
	if err := requireNonNull(b); err != nil {
		return nil, err
	}
	isFloat, fa, fb, ia, ib, ok := numeric(a, b)
	if !ok {
		return nil, opError("/", a, b)
	}
	if isFloat {
		return Flt(fa / fb), nil
	}
	if ib == 0 {
		return nil, errors.New("integer division by zero")
	}
	return Int(ia / ib), nil
}

func Mod(a, b *Value) (*Value, error) {
	if err := requireNonNull(a); err != nil {
		return nil, err
	}
	if err := requireNonNull(b); err != nil {
		return nil, err
	}
	isFloat, fa, fb, ia, ib, ok := numeric(a, b)
	if !ok {
		return nil, opError("%", a, b)
	}
	if isFloat {
		return Flt(math.Mod(fa, fb)), nil
	}
	if ib == 0 {
		return nil, errors.New("integer division by zero")
	}
	return Int(ia % ib), nil
}

func Pow(a, b *Value) (*Value, error) {
	if err := requireNonNull(a); err != nil {
		return nil, err
	}
	if err := requireNonNull(b); err != nil {
		return nil, err
	}
	isFloat, fa, fb, ia, ib, ok := numeric(a, b)
	if !ok {
		return nil, opError("**", a, b)
	}
	if isFloat {
		return Flt(math.Pow(fa, fb)), nil
	}
	if ib < 0 {
		return Flt(math.Pow(float64(ia), float64(ib))), nil
	}
	return Int(int64(math.Pow(float64(ia), float64(ib)))), nil
}

func bitwise(op string, a, b *Value, f func(int64, int64) int64) (*Value, error) {
	if err := requireNonNull(a); err != nil {
		return nil, err
	}
	if err := requireNonNull(b); err != nil {
		return nil, err
	}
	if a.Kind != KindInteger || b.Kind != KindInteger {
		return nil, opError(op, a, b)
	}
	return Int(f(a.Int, b.Int)), nil
}

func BitAnd(a, b *Value) (*Value, error) {
	return bitwise("&", a, b, func(x, y int64) int64 { return x & y })
}
func BitOr(a, b *Value) (*Value, error) {
	return bitwise("|", a, b, func(x, y int64) int64 { return x | y })
}
func BitXor(a, b *Value) (*Value, error) {
	return bitwise("^", a, b, func(x, y int64) int64 { return x ^ y })
}

func LogAnd(a, b *Value) (*Value, error) { return Bool(a.IsTruthy() && b.IsTruthy()), nil }
func LogOr(a, b *Value) (*Value, error)  { return Bool(a.IsTruthy() || b.IsTruthy()), nil }

// Eq implements `==`. Values of different kinds are never equal except
// that integer and float compare by numeric value.
func Eq(a, b *Value) (*Value, error) {
	if a.Kind == KindNull || b.Kind == KindNull {
		return Bool(a.Kind == b.Kind), nil
	}
	if isFloat, fa, fb, ia, ib, ok := numeric(a, b); ok {
		if isFloat {
			return Bool(fa == fb), nil
		}
		return Bool(ia == ib), nil
	}
	if a.Kind != b.Kind {
		return Bool(false), nil
	}
	switch a.Kind {
	case KindString:
		return Bool(a.Str == b.Str), nil
	case KindObject:
		return Bool(a.Obj == b.Obj), nil
	case KindFunction:
		return Bool(a.Fn == b.Fn), nil
	default:
		return Bool(a.Native == b.Native), nil
	}
}

func NotEq(a, b *Value) (*Value, error) {
	eq, err := Eq(a, b)
	if err != nil {
		return nil, err
	}
	return Bool(!eq.IsTruthy()), nil
}

func compare(op string, a, b *Value, fi func(int64, int64) bool, ff func(float64, float64) bool) (*Value, error) {
	if err := requireNonNull(a); err != nil {
		return nil, err
	}
	if err := requireNonNull(b); err != nil {
		return nil, err
	}
	if a.Kind == KindString && b.Kind == KindString {
		switch op {
		case "<":
			return Bool(a.Str < b.Str), nil
		case ">":
			return Bool(a.Str > b.Str), nil
		case "<=":
			return Bool(a.Str <= b.Str), nil
		case ">=":
			return Bool(a.Str >= b.Str), nil
		}
	}
	isFloat, fa, fb, ia, ib, ok := numeric(a, b)
	if !ok {
		return nil, opError(op, a, b)
	}
	if isFloat {
		return Bool(ff(fa, fb)), nil
	}
	return Bool(fi(ia, ib)), nil
}

func Less(a, b *Value) (*Value, error) {
	return compare("<", a, b, func(x, y int64) bool { return x < y }, func(x, y float64) bool { return x < y })
}
func Greater(a, b *Value) (*Value, error) {
	return compare(">", a, b, func(x, y int64) bool { return x > y }, func(x, y float64) bool { return x > y })
}
func LessEq(a, b *Value) (*Value, error) {
	return compare("<=", a, b, func(x, y int64) bool { return x <= y }, func(x, y float64) bool { return x <= y })
}
func GreaterEq(a, b *Value) (*Value, error) {
	return compare(">=", a, b, func(x, y int64) bool { return x >= y }, func(x, y float64) bool { return x >= y })
}

// Neg implements unary `-`.
func Neg(a *Value) (*Value, error) {
	if err := requireNonNull(a); err != nil {
		return nil, err
	}
	switch a.Kind {
	case KindInteger:
		return Int(-a.Int), nil
	case KindFloat:
		return Flt(-a.Float), nil
	default:
		return nil, opError("-", a, nil)
	}
}

// Not implements unary `!`.
func Not(a *Value) (*Value, error) {
	return Bool(!a.IsTruthy()), nil
}

// Assign implements `=` in place, per spec.md §3: scalar kinds (null,
// integer, float, string) are copied into dst; object, function, and
// native values are shared by reference, so dst and src alias the same
// underlying Object/Function/handle afterward. A const dst is rejected
// regardless of kind.
func Assign(dst, src *Value) error {
	if dst.IsConst {
		return errors.WithStack(ErrConstValueChanged)
	}
	switch src.Kind {
	case KindObject:
		dst.Kind = KindObject
		dst.Obj = src.Obj
	case KindFunction:
		dst.Kind = KindFunction
		dst.Fn = src.Fn
	case KindNative:
		dst.Kind = KindNative
		dst.Native = src.Native
		dst.IsNative = src.IsNative
	default:
		dst.Kind = src.Kind
		dst.Int = src.Int
		dst.Float = src.Float
		dst.Str = src.Str
	}
	return nil
}

// Clone returns a value with the same contents as v. Scalars are
// copied; object/function/native payloads are shared, matching Assign's
// reference semantics so that `var b = a;` aliases the same instance a
// does whenever a is non-scalar.
func Clone(v *Value) *Value {
	cp := *v
	return &cp
}
