// Package token defines the CMini token stream and the index-stable
// text-rewriting primitive every transformation pass is built on.
package token

import "fmt"

// Kind identifies the lexical class of a token.
type Kind uint8

const (
	Illegal Kind = iota
	Whitespace
	Comment

	Ident
	Int
	Char
	String

	keywordStart
	KwInt     // int
	KwChar    // char
	KwBool    // bool
	KwIf      // if
	KwElse    // else
	KwWhile   // while
	KwSwitch  // switch
	KwCase    // case
	KwDefault // default
	KwBreak   // break
	KwReturn  // return
	KwTrue    // true
	KwFalse   // false
	keywordEnd

	symbolStart
	LParen    // (
	RParen    // )
	LBrace    // {
	RBrace    // }
	Comma     // ,
	Semicolon // ;
	Colon     // :
	Assign    // =
	Plus      // +
	Minus     // -
	Star      // *
	Slash     // /
	Percent   // %
	Not       // !
	Eq        // ==
	Neq       // !=
	Lt        // <
	Le        // <=
	Gt        // >
	Ge        // >=
	AndAnd    // &&
	OrOr      // ||
	symbolEnd
)

var kindNames = map[Kind]string{
	Illegal:    "Illegal",
	Whitespace: "Whitespace",
	Comment:    "Comment",
	Ident:      "Ident",
	Int:        "Int",
	Char:       "Char",
	String:     "String",
	KwInt:      "int",
	KwChar:     "char",
	KwBool:     "bool",
	KwIf:       "if",
	KwElse:     "else",
	KwWhile:    "while",
	KwSwitch:   "switch",
	KwCase:     "case",
	KwDefault:  "default",
	KwBreak:    "break",
	KwReturn:   "return",
	KwTrue:     "true",
	KwFalse:    "false",
	LParen:     "(",
	RParen:     ")",
	LBrace:     "{",
	RBrace:     "}",
	Comma:      ",",
	Semicolon:  ";",
	Colon:      ":",
	Assign:     "=",
	Plus:       "+",
	Minus:      "-",
	Star:       "*",
	Slash:      "/",
	Percent:    "%",
	Not:        "!",
	Eq:         "==",
	Neq:        "!=",
	Lt:         "<",
	Le:         "<=",
	Gt:         ">",
	Ge:         ">=",
	AndAnd:     "&&",
	OrOr:       "||",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool { return keywordStart < k && k < keywordEnd }

// IsSymbol reports whether k is an operator or punctuation.
func (k Kind) IsSymbol() bool { return symbolStart < k && k < symbolEnd }

// IsHidden reports whether the parser skips tokens of this kind.
func (k Kind) IsHidden() bool { return k == Whitespace || k == Comment }

// IsType reports whether k names one of the supported scalar types.
func (k Kind) IsType() bool { return k == KwInt || k == KwChar || k == KwBool }

// Keywords maps reserved words to their kinds.
var Keywords = map[string]Kind{
	"int":     KwInt,
	"char":    KwChar,
	"bool":    KwBool,
	"if":      KwIf,
	"else":    KwElse,
	"while":   KwWhile,
	"switch":  KwSwitch,
	"case":    KwCase,
	"default": KwDefault,
	"break":   KwBreak,
	"return":  KwReturn,
	"true":    KwTrue,
	"false":   KwFalse,
}

// Pos is a 1-based line:column source position.
type Pos struct {
	Line, Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is one lexical unit. Index is its identity and never changes; Text
// is the current display text and may be blanked or replaced by a pass.
// Source keeps the text the lexer produced.
type Token struct {
	Index  int
	Kind   Kind
	Text   string
	Source string
	Pos    Pos
}

func (t Token) String() string {
	if t.Kind.IsKeyword() || t.Kind.IsSymbol() {
		return fmt.Sprintf("%d:%v", t.Index, t.Kind)
	}
	return fmt.Sprintf("%d:%v(%q)", t.Index, t.Kind, t.Text)
}

// Rewritten reports whether a pass has changed the token's text.
func (t Token) Rewritten() bool { return t.Text != t.Source }
