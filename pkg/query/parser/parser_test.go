package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/query/lexer"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/query/parser"
)

func TestQueries(t *testing.T) {
	scenarios := []struct {
		input    string
		expected *parser.AndExpr
	}{
		{
			input: "name = 'sklearn-random-forest'",
			expected: &parser.AndExpr{
				Exprs: []*parser.CompareExpr{
					{
						Left:     parser.Identifier{Key: "name"},
						Operator: parser.Equals,
						Right:    parser.StringExpr{Value: "sklearn-random-forest"},
					},
				},
			},
		},
		{
			input: "name = 'rf' AND version > 2",
			expected: &parser.AndExpr{
				Exprs: []*parser.CompareExpr{
					{
						Left:     parser.Identifier{Key: "name"},
						Operator: parser.Equals,
						Right:    parser.StringExpr{Value: "rf"},
					},
					{
						Left:     parser.Identifier{Key: "version"},
						Operator: parser.Greater,
						Right:    parser.NumberExpr{Value: 2},
					},
				},
			},
		},
		{
			input: "tags.`deploy.target` LIKE 'prod%'",
			expected: &parser.AndExpr{
				Exprs: []*parser.CompareExpr{
					{
						Left:     parser.Identifier{Identifier: "tags", Key: "deploy.target"},
						Operator: parser.Like,
						Right:    parser.StringExpr{Value: "prod%"},
					},
				},
			},
		},
		{
			input: "current_stage NOT IN ('None', 'Archived')",
			expected: &parser.AndExpr{
				Exprs: []*parser.CompareExpr{
					{
						Left:     parser.Identifier{Key: "current_stage"},
						Operator: parser.NotIn,
						Right:    parser.StringListExpr{Values: []string{"None", "Archived"}},
					},
				},
			},
		},
		{
			input: "version = 3 AND last_updated_timestamp <= 1700000000000",
			expected: &parser.AndExpr{
				Exprs: []*parser.CompareExpr{
					{
						Left:     parser.Identifier{Key: "version"},
						Operator: parser.Equals,
						Right:    parser.NumberExpr{Value: 3},
					},
					{
						Left:     parser.Identifier{Key: "last_updated_timestamp"},
						Operator: parser.LessEquals,
						Right:    parser.NumberExpr{Value: 1700000000000},
					},
				},
			},
		},
		{
			input: "tags.'team name' != 'ml' and run_id in ('a')",
			expected: &parser.AndExpr{
				Exprs: []*parser.CompareExpr{
					{
						Left:     parser.Identifier{Identifier: "tags", Key: "team name"},
						Operator: parser.NotEquals,
						Right:    parser.StringExpr{Value: "ml"},
					},
					{
						Left:     parser.Identifier{Key: "run_id"},
						Operator: parser.In,
						Right:    parser.StringListExpr{Values: []string{"a"}},
					},
				},
			},
		},
		{
			input: `name = 'it\'s'`,
			expected: &parser.AndExpr{
				Exprs: []*parser.CompareExpr{
					{
						Left:     parser.Identifier{Key: "name"},
						Operator: parser.Equals,
						Right:    parser.StringExpr{Value: "it's"},
					},
				},
			},
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.input, func(t *testing.T) {
			tokens, err := lexer.Tokenize(scenario.input)
			require.NoError(t, err)

			ast, err := parser.Parse(tokens)
			require.NoError(t, err)
			assert.Equal(t, scenario.expected, ast)
		})
	}
}

func TestInvalidSyntax(t *testing.T) {
	scenarios := []struct {
		input   string
		message string
	}{
		{"current_stage IS 'Production'", "expected a comparison operator"},
		{"name = ", "expected a string or a number"},
		{"name = 'a' name = 'b'", "after the last clause"},
		{"name = 'a' AND", "clause 2: expected a field name"},
		{"run_id NOT ('a')", "expected IN after NOT"},
		{"name < 'a'", "expected a number after <"},
		{"source >= 's3://bucket'", "expected a number after >="},
		{"run_id IN ()", "expected a quoted string"},
		{"run_id IN ('a',)", "expected a quoted string"},
		{"run_id IN ('a' 'b')", "expected ')'"},
		{"run_id IN (1)", "expected a quoted string"},
		{"tags. = 'x'", "expected a key after tags."},
		{"'name' = 'x'", "expected a field name"},
		{"   ", "expected a field name"},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.input, func(t *testing.T) {
			tokens, err := lexer.Tokenize(scenario.input)
			require.NoError(t, err)

			_, err = parser.Parse(tokens)
			require.Error(t, err)
			assert.Contains(t, err.Error(), scenario.message)
		})
	}
}
