package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the MiniObli lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInt        // 42
	TokenIdentifier // foo, x1

	// Keywords
	TokenLet
	TokenIf
	TokenThen
	TokenElse
	TokenSecret
	TokenTrue
	TokenFalse

	// Operators
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenSlash   // /
	TokenPercent // %
	TokenEq      // ==
	TokenNe      // !=
	TokenLt      // <
	TokenLe      // <=
	TokenGt      // >
	TokenGe      // >=
	TokenAnd     // and, &&
	TokenOr      // or, ||
	TokenNot     // not, !
	TokenAssign  // =

	// Delimiters
	TokenLParen // (
	TokenRParen // )
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenInt:        "INT",
	TokenIdentifier: "IDENTIFIER",
	TokenLet:        "let",
	TokenIf:         "if",
	TokenThen:       "then",
	TokenElse:       "else",
	TokenSecret:     "secret",
	TokenTrue:       "true",
	TokenFalse:      "false",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenPercent:    "%",
	TokenEq:         "==",
	TokenNe:         "!=",
	TokenLt:         "<",
	TokenLe:         "<=",
	TokenGt:         ">",
	TokenGe:         ">=",
	TokenAnd:        "and",
	TokenOr:         "or",
	TokenNot:        "not",
	TokenAssign:     "=",
	TokenLParen:     "(",
	TokenRParen:     ")",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"let":    TokenLet,
	"if":     TokenIf,
	"then":   TokenThen,
	"else":   TokenElse,
	"secret": TokenSecret,
	"true":   TokenTrue,
	"false":  TokenFalse,
	"and":    TokenAnd,
	"or":     TokenOr,
	"not":    TokenNot,
}
