package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_IntegerAndFloatPromotion(t *testing.T) {
	v, err := Add(Int(2), Flt(1.5))
	require.NoError(t, err)
	assert.Equal(t, KindFloat, v.Kind)
	assert.Equal(t, 3.5, v.Float)
}

func TestAdd_StringConcatenation(t *testing.T) {
	v, err := Add(Str("a"), Int(1))
	require.NoError(t, err)
	assert.Equal(t, "a1", v.Str)
}

func TestAdd_NullOperandErrors(t *testing.T) {
	_, err := Add(Null(), Int(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNullValueUsed)
}

func TestDiv_IntegerByZero(t *testing.T) {
	_, err := Div(Int(1), Int(0))
	require.Error(t, err)
}

func TestDiv_FloatByZeroIsInf(t *testing.T) {
	v, err := Div(Flt(1), Flt(0))
	require.NoError(t, err)
	assert.True(t, v.Float > 0)
}

func TestMod_Integer(t *testing.T) {
	v, err := Mod(Int(7), Int(3))
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Int)
}

func TestPow_IntegerResult(t *testing.T) {
	v, err := Pow(Int(2), Int(10))
	require.NoError(t, err)
	assert.Equal(t, KindInteger, v.Kind)
	assert.EqualValues(t, 1024, v.Int)
}

func TestBitwise_RejectsNonInteger(t *testing.T) {
	_, err := BitAnd(Flt(1), Int(1))
	require.Error(t, err)
}

func TestEq_CrossKindNumeric(t *testing.T) {
	v, err := Eq(Int(1), Flt(1.0))
	require.NoError(t, err)
	assert.True(t, v.IsTruthy())
}

func TestEq_DifferentKindsAreNotEqual(t *testing.T) {
	v, err := Eq(Int(1), Str("1"))
	require.NoError(t, err)
	assert.False(t, v.IsTruthy())
}

func TestCompare_Strings(t *testing.T) {
	v, err := Less(Str("a"), Str("b"))
	require.NoError(t, err)
	assert.True(t, v.IsTruthy())
}

func TestNeg_Float(t *testing.T) {
	v, err := Neg(Flt(2.5))
	require.NoError(t, err)
	assert.Equal(t, -2.5, v.Float)
}

func TestNot_Truthy(t *testing.T) {
	v, err := Not(Int(0))
	require.NoError(t, err)
	assert.True(t, v.IsTruthy())
}

func TestAssign_ScalarCopiesNotAliases(t *testing.T) {
	a := Int(1)
	b := Int(2)
	require.NoError(t, Assign(a, b))
	assert.EqualValues(t, 2, a.Int)
	b.Int = 99
	assert.EqualValues(t, 2, a.Int, "scalar assignment must copy, not alias")
}

func TestAssign_ObjectSharesReference(t *testing.T) {
	obj := NewObject("Point")
	obj.Set("x", Int(1))
	a := Null()
	b := Obj(obj)
	require.NoError(t, Assign(a, b))
	require.Equal(t, KindObject, a.Kind)
	a.Obj.Set("x", Int(42))
	v, _ := obj.Get("x")
	assert.EqualValues(t, 42, v.Int, "object assignment must share the underlying instance")
}

func TestAssign_ConstRejected(t *testing.T) {
	a := &Value{Kind: KindInteger, Int: 1, IsConst: true}
	err := Assign(a, Int(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConstValueChanged)
}

func TestObject_KeyOrderIsInsertionOrder(t *testing.T) {
	o := NewObject("T")
	o.Set("b", Int(1))
	o.Set("a", Int(2))
	o.Set("b", Int(3))
	assert.Equal(t, []string{"b", "a"}, o.Keys())
}

func TestIsTruthy(t *testing.T) {
	assert.False(t, Null().IsTruthy())
	assert.False(t, Int(0).IsTruthy())
	assert.False(t, Flt(0).IsTruthy())
	assert.True(t, Str("").IsTruthy())
	assert.True(t, Int(1).IsTruthy())
}
