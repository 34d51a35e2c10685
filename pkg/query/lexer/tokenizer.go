// Package lexer splits search filters such as
// "name = 'my-model' AND tags.team LIKE 'ml%'" into tokens.
package lexer

import (
	"fmt"
	"regexp"
	"strings"
)

type Error struct {
	message string
}

func NewLexerError(format string, a ...any) *Error {
	return &Error{message: fmt.Sprintf(format, a...)}
}

func (e *Error) Error() string {
	return e.message
}

type handler func(match string) (Token, bool)

type rule struct {
	regex   *regexp.Regexp
	handler handler
}

//nolint:gochecknoglobals
var rules = []rule{
	{regexp.MustCompile(`^\s+`), func(string) (Token, bool) { return Token{}, false }},
	{regexp.MustCompile(`^"(?:[^"\\]|\\.)*"`), literal(String)},
	{regexp.MustCompile(`^'(?:[^'\\]|\\.)*'`), literal(String)},
	{regexp.MustCompile("^`[^`]*`"), literal(String)},
	{regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?`), literal(Number)},
	{regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*`), symbol},
	{regexp.MustCompile(`^\(`), literal(OpenParen)},
	{regexp.MustCompile(`^\)`), literal(CloseParen)},
	{regexp.MustCompile(`^!=`), literal(NotEquals)},
	{regexp.MustCompile(`^==?`), literal(Equals)},
	{regexp.MustCompile(`^<=`), literal(LessEquals)},
	{regexp.MustCompile(`^<`), literal(Less)},
	{regexp.MustCompile(`^>=`), literal(GreaterEquals)},
	{regexp.MustCompile(`^>`), literal(Greater)},
	{regexp.MustCompile(`^\.`), literal(Dot)},
	{regexp.MustCompile(`^,`), literal(Comma)},
}

func literal(kind TokenKind) handler {
	return func(match string) (Token, bool) {
		return Token{Kind: kind, Value: match}, true
	}
}

func symbol(match string) (Token, bool) {
	if kind, found := reservedLu[strings.ToUpper(match)]; found {
		return Token{Kind: kind, Value: match}, true
	}

	return Token{Kind: Identifier, Value: match}, true
}

// Tokenize returns the tokens of source terminated by an EOF token.
func Tokenize(source string) ([]Token, error) {
	tokens := make([]Token, 0)
	rest := source

	for rest != "" {
		matched := false

		for _, r := range rules {
			match := r.regex.FindString(rest)
			if match == "" {
				continue
			}

			if token, keep := r.handler(match); keep {
				tokens = append(tokens, token)
			}

			rest = rest[len(match):]
			matched = true

			break
		}

		if !matched {
			return tokens, NewLexerError("unrecognized token near '%v'", rest)
		}
	}

	return append(tokens, Token{Kind: EOF, Value: "EOF"}), nil
}
