// Package parser turns the tokens of a model version search filter into
// comparison clauses joined by AND.
//
//	filter     := clause { AND clause }
//	clause     := field ( ordering | match | membership )
//	field      := IDENT [ "." ( IDENT | STRING ) ]
//	ordering   := ( "<" | "<=" | ">" | ">=" ) NUMBER
//	match      := ( "=" | "!=" | LIKE | ILIKE ) ( STRING | NUMBER )
//	membership := [ NOT ] IN "(" STRING { "," STRING } ")"
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/query/lexer"
)

type Error struct {
	message string
}

func NewParserError(format string, a ...any) *Error {
	return &Error{message: fmt.Sprintf(format, a...)}
}

func (e *Error) Error() string {
	return e.message
}

//nolint:gochecknoglobals
var (
	orderingOperators = map[lexer.TokenKind]OperatorKind{
		lexer.Less:          Less,
		lexer.LessEquals:    LessEquals,
		lexer.Greater:       Greater,
		lexer.GreaterEquals: GreaterEquals,
	}
	matchOperators = map[lexer.TokenKind]OperatorKind{
		lexer.Equals:    Equals,
		lexer.NotEquals: NotEquals,
		lexer.Like:      Like,
		lexer.ILike:     ILike,
	}
)

// cursor walks a token slice that always ends with EOF.
type cursor struct {
	tokens []lexer.Token
	pos    int
}

func (c *cursor) peek() lexer.Token {
	if c.pos >= len(c.tokens) {
		return lexer.Token{Kind: lexer.EOF, Value: "EOF"}
	}

	return c.tokens[c.pos]
}

func (c *cursor) next() lexer.Token {
	token := c.peek()
	if token.Kind != lexer.EOF {
		c.pos++
	}

	return token
}

func (c *cursor) accept(kind lexer.TokenKind) bool {
	if c.peek().Kind != kind {
		return false
	}

	c.next()

	return true
}

func (c *cursor) expect(kind lexer.TokenKind, what string) (lexer.Token, error) {
	token := c.next()
	if token.Kind != kind {
		return token, NewParserError("expected %s, got %s", what, token.Debug())
	}

	return token, nil
}

func (c *cursor) field() (Identifier, error) {
	head, err := c.expect(lexer.Identifier, "a field name")
	if err != nil {
		return Identifier{}, err
	}

	if !c.accept(lexer.Dot) {
		return Identifier{Key: head.Value}, nil
	}

	key := c.next()

	switch key.Kind {
	case lexer.Identifier:
		return Identifier{Identifier: head.Value, Key: key.Value}, nil
	case lexer.String:
		return Identifier{Identifier: head.Value, Key: unquote(key.Value)}, nil
	default:
		return Identifier{}, NewParserError("expected a key after %s., got %s", head.Value, key.Debug())
	}
}

func number(token lexer.Token) (NumberExpr, error) {
	n, err := strconv.ParseFloat(token.Value, 64)
	if err != nil {
		return NumberExpr{}, NewParserError("invalid number %s", token.Value)
	}

	return NumberExpr{Value: n}, nil
}

func (c *cursor) membership(field Identifier, operator OperatorKind) (*CompareExpr, error) {
	if _, err := c.expect(lexer.OpenParen, "'('"); err != nil {
		return nil, err
	}

	var values []string

	for {
		value, err := c.expect(lexer.String, "a quoted string")
		if err != nil {
			return nil, err
		}

		values = append(values, unquote(value.Value))

		if !c.accept(lexer.Comma) {
			break
		}
	}

	if _, err := c.expect(lexer.CloseParen, "')'"); err != nil {
		return nil, err
	}

	return &CompareExpr{Left: field, Operator: operator, Right: StringListExpr{Values: values}}, nil
}

func (c *cursor) clause() (*CompareExpr, error) {
	field, err := c.field()
	if err != nil {
		return nil, err
	}

	token := c.next()

	if operator, ok := orderingOperators[token.Kind]; ok {
		value, err := c.expect(lexer.Number, "a number after "+operator.String())
		if err != nil {
			return nil, err
		}

		n, err := number(value)
		if err != nil {
			return nil, err
		}

		return &CompareExpr{Left: field, Operator: operator, Right: n}, nil
	}

	if operator, ok := matchOperators[token.Kind]; ok {
		value := c.next()

		switch value.Kind {
		case lexer.String:
			return &CompareExpr{Left: field, Operator: operator, Right: StringExpr{Value: unquote(value.Value)}}, nil
		case lexer.Number:
			n, err := number(value)
			if err != nil {
				return nil, err
			}

			return &CompareExpr{Left: field, Operator: operator, Right: n}, nil
		default:
			return nil, NewParserError("expected a string or a number after %s, got %s", operator, value.Debug())
		}
	}

	switch token.Kind {
	case lexer.In:
		return c.membership(field, In)
	case lexer.Not:
		if _, err := c.expect(lexer.In, "IN after NOT"); err != nil {
			return nil, err
		}

		return c.membership(field, NotIn)
	default:
		return nil, NewParserError("expected a comparison operator after %s, got %s", field.Key, token.Debug())
	}
}

// unquote strips the quotes of a string token and resolves backslash escapes.
func unquote(literal string) string {
	inner := literal[1 : len(literal)-1]
	if !strings.ContainsRune(inner, '\\') {
		return inner
	}

	var builder strings.Builder

	escaped := false

	for _, r := range inner {
		if !escaped && r == '\\' {
			escaped = true

			continue
		}

		escaped = false

		builder.WriteRune(r)
	}

	return builder.String()
}

// Parse reads a filter made of clauses joined by AND.
func Parse(tokens []lexer.Token) (*AndExpr, error) {
	c := &cursor{tokens: tokens}

	var clauses []*CompareExpr

	for {
		clause, err := c.clause()
		if err != nil {
			return nil, fmt.Errorf("clause %d: %w", len(clauses)+1, err)
		}

		clauses = append(clauses, clause)

		if !c.accept(lexer.And) {
			break
		}
	}

	if token := c.peek(); token.Kind != lexer.EOF {
		return nil, NewParserError("unexpected %s after the last clause", token.Debug())
	}

	return &AndExpr{Exprs: clauses}, nil
}
