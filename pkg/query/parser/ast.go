package parser

// --------------------
// Literal Expressions
// --------------------

type Value interface {
	value() any
}

type NumberExpr struct {
	Value float64
}

func (n NumberExpr) value() any { return n.Value }

type StringExpr struct {
	Value string
}

func (n StringExpr) value() any { return n.Value }

type StringListExpr struct {
	Values []string
}

func (n StringListExpr) value() any { return n.Values }

//-----------------------
// Identifier Expressions
// ----------------------

// identifier.key expression, like tags.team.
type Identifier struct {
	Identifier string
	Key        string
}

// --------------------
// Comparison Expression
// --------------------

type OperatorKind int

const (
	Equals OperatorKind = iota
	NotEquals
	Less
	LessEquals
	Greater
	GreaterEquals
	Like
	ILike
	In //nolint:varnamelen
	NotIn
)

//nolint:gochecknoglobals
var operatorSQL = map[OperatorKind]string{
	Equals:        "=",
	NotEquals:     "!=",
	Less:          "<",
	LessEquals:    "<=",
	Greater:       ">",
	GreaterEquals: ">=",
	Like:          "LIKE",
	ILike:         "ILIKE",
	In:            "IN",
	NotIn:         "NOT IN",
}

// String renders the operator as it appears in SQL.
func (op OperatorKind) String() string {
	return operatorSQL[op]
}

// a operator b.
type CompareExpr struct {
	Left     Identifier
	Operator OperatorKind
	Right    Value
}

// AND.
type AndExpr struct {
	Exprs []*CompareExpr
}
