package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextToken_BasicTokens(t *testing.T) {
	input := `module ; , . ( ) { }`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenModule, "module"},
		{TokenSemicolon, ";"},
		{TokenComma, ","},
		{TokenDot, "."},
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBrace, "{"},
		{TokenRBrace, "}"},
		{TokenEOF, ""},
	}

	l := New("t.zen", input)
	for i, tt := range tests {
		tok := l.NextToken()
		assert.Equalf(t, tt.expectedType, tok.Type, "tests[%d] type", i)
		assert.Equalf(t, tt.expectedLiteral, tok.Literal, "tests[%d] literal", i)
	}
}

func TestNextToken_Operators(t *testing.T) {
	input := `+ - * / % == != < > <= >= = += -= && || **`

	tests := []TokenType{
		TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent,
		TokenEqual, TokenNotEqual, TokenLess, TokenGreater, TokenLessEq,
		TokenGreaterEq, TokenAssign, TokenAddAssign, TokenSubAssign,
		TokenLogAnd, TokenLogOr, TokenCaret, TokenEOF,
	}

	l := New("t.zen", input)
	for i, want := range tests {
		tok := l.NextToken()
		assert.Equalf(t, want, tok.Type, "tests[%d]", i)
	}
}

func TestNextToken_Keywords(t *testing.T) {
	input := `module import var fn class if else for return true false null self new break continue`
	want := []TokenType{
		TokenModule, TokenImport, TokenVar, TokenFn, TokenClass, TokenIf,
		TokenElse, TokenFor, TokenReturn, TokenTrue, TokenFalse, TokenNull,
		TokenSelf, TokenNew, TokenBreak, TokenContinue, TokenEOF,
	}
	l := New("t.zen", input)
	for i, w := range want {
		tok := l.NextToken()
		assert.Equalf(t, w, tok.Type, "tests[%d]", i)
	}
}

func TestNextToken_StringAndNumbers(t *testing.T) {
	input := `"hello\nworld" 42 3.14`
	l := New("t.zen", input)

	tok := l.NextToken()
	require.Equal(t, TokenString, tok.Type)
	assert.Equal(t, "hello\nworld", tok.Literal)

	tok = l.NextToken()
	require.Equal(t, TokenInteger, tok.Type)
	assert.Equal(t, "42", tok.Literal)

	tok = l.NextToken()
	require.Equal(t, TokenFloat, tok.Type)
	assert.Equal(t, "3.14", tok.Literal)
}

func TestNextToken_LineComment(t *testing.T) {
	input := "var x = 1 // trailing comment\nvar y = 2"
	l := New("t.zen", input)

	tokens, err := l.Tokenize()
	require.NoError(t, err)
	require.Greater(t, len(tokens), 5)
	assert.Equal(t, 2, tokens[len(tokens)-2].Line)
}

func TestTokenize_Illegal(t *testing.T) {
	l := New("t.zen", "var x = @")
	_, err := l.Tokenize()
	require.Error(t, err)
}
