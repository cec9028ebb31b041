// Package stdlib provides the native bindings registered into a VM
// before it runs a program: the host-side half of spec.md §6's
// bind_function surface. It is a deliberately small adaptation of the
// teacher's pkg/vm/primitives.go catalogue, trimmed to the bindings
// this language's grammar and Non-goals actually call for — file I/O,
// JSON, console output, and a clock — and dropped everything requiring
// a network, a cipher, a compressor, or a regex engine, none of which
// this single-threaded, sandboxed scripting surface has a caller for.
package stdlib

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kristofer/zen/pkg/value"
	"github.com/kristofer/zen/pkg/vm"
	"github.com/pkg/errors"
)

// Register binds every native function this distribution ships onto
// vm, writing print/println output to out.
func Register(m *vm.VM, out io.Writer) {
	m.BindFunction("print", 1, func(args []*value.Value) (*value.Value, error) {
		fmt.Fprint(out, args[0].String())
		return value.Null(), nil
	})
	m.BindFunction("println", 1, func(args []*value.Value) (*value.Value, error) {
		fmt.Fprintln(out, args[0].String())
		return value.Null(), nil
	})
	m.BindFunction("str", 1, func(args []*value.Value) (*value.Value, error) {
		return value.Str(args[0].String()), nil
	})
	m.BindFunction("type", 1, func(args []*value.Value) (*value.Value, error) {
		return value.Str(args[0].TypeStr()), nil
	})
	m.BindFunction("len", 1, lenFn)
	m.BindFunction("clock", 0, func(args []*value.Value) (*value.Value, error) {
		return value.Int(time.Now().Unix()), nil
	})
	m.BindFunction("read_file", 1, readFileFn)
	m.BindFunction("write_file", 2, writeFileFn)
	m.BindFunction("json_encode", 1, jsonEncodeFn)
	m.BindFunction("json_decode", 1, jsonDecodeFn)
}

// lenFn reports string length or object member count — the two Value
// kinds a `len` call on this language's types can mean anything by.
func lenFn(args []*value.Value) (*value.Value, error) {
	v := args[0]
	switch v.Kind {
	case value.KindString:
		return value.Int(int64(len(v.Str))), nil
	case value.KindObject:
		return value.Int(int64(len(v.Obj.Keys()))), nil
	default:
		return nil, errors.Errorf("len: unsupported operand of type %s", v.TypeStr())
	}
}

// readFileFn and writeFileFn adapt primitives.go's fileRead/fileWrite
// to the bind_function signature, reusing os.ReadFile/os.WriteFile
// exactly as the teacher did.
func readFileFn(args []*value.Value) (*value.Value, error) {
	path := args[0].Str
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read_file %q", path)
	}
	return value.Str(string(content)), nil
}

func writeFileFn(args []*value.Value) (*value.Value, error) {
	path := args[0].Str
	content := args[1].String()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, errors.Wrapf(err, "write_file %q", path)
	}
	return value.Null(), nil
}

// jsonEncodeFn renders a Value tree as JSON. Scalars map directly;
// objects become JSON objects over their member map in declaration
// order. There is no array/list Value kind in this language (see
// DESIGN.md), so JSON arrays are not producible from script values —
// only consumable by json_decode, which maps them onto indexed object
// members ("0", "1", ...).
func jsonEncodeFn(args []*value.Value) (*value.Value, error) {
	encoded, err := json.Marshal(toJSON(args[0]))
	if err != nil {
		return nil, errors.Wrap(err, "json_encode")
	}
	return value.Str(string(encoded)), nil
}

func toJSON(v *value.Value) interface{} {
	switch v.Kind {
	case value.KindNull:
		return nil
	case value.KindInteger:
		return v.Int
	case value.KindFloat:
		return v.Float
	case value.KindString:
		return v.Str
	case value.KindObject:
		out := make(map[string]interface{}, len(v.Obj.Keys()))
		for _, k := range v.Obj.Keys() {
			member, _ := v.Obj.Get(k)
			out[k] = toJSON(member)
		}
		return out
	default:
		return v.String()
	}
}

func jsonDecodeFn(args []*value.Value) (*value.Value, error) {
	var decoded interface{}
	if err := json.Unmarshal([]byte(args[0].Str), &decoded); err != nil {
		return nil, errors.Wrap(err, "json_decode")
	}
	return fromJSON(decoded), nil
}

func fromJSON(v interface{}) *value.Value {
	switch n := v.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(n)
	case float64:
		if n == float64(int64(n)) {
			return value.Int(int64(n))
		}
		return value.Flt(n)
	case string:
		return value.Str(n)
	case []interface{}:
		obj := value.NewObject("json_array")
		for i, elem := range n {
			obj.Set(fmt.Sprintf("%d", i), fromJSON(elem))
		}
		return value.Obj(obj)
	case map[string]interface{}:
		obj := value.NewObject("json_object")
		for k, elem := range n {
			obj.Set(k, fromJSON(elem))
		}
		return value.Obj(obj)
	default:
		return value.Null()
	}
}
