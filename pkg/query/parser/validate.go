package parser

import (
	"fmt"
	"strings"
)

/*

This is the equivalent of type-checking the untyped tree.
Not every parsed tree is a valid one.

Grammar rule: identifier.key operator value

For model versions the identifier is either "attribute" (implied when
only a key is given) or "tag". Attribute keys have aliases which are
normalised to the column name of the model_versions table.

*/

type ValidIdentifier int

const (
	Attribute ValidIdentifier = iota
	Tag
)

func (v ValidIdentifier) String() string {
	switch v {
	case Attribute:
		return "attribute"
	case Tag:
		return "tag"
	default:
		return "unknown"
	}
}

type ValidCompareExpr struct {
	Identifier ValidIdentifier
	Key        string
	Operator   OperatorKind
	Value      any
}

type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string {
	return e.message
}

func NewValidationError(format string, a ...any) *ValidationError {
	return &ValidationError{message: fmt.Sprintf(format, a...)}
}

func parseValidIdentifier(identifier string) (ValidIdentifier, error) {
	switch identifier {
	case "", "attribute", "attr", "attributes":
		return Attribute, nil
	case "tag", "tags":
		return Tag, nil
	default:
		return -1, NewValidationError("invalid identifier %q", identifier)
	}
}

// Column names of the searchable model version attributes.
const (
	Name            = "name"
	Version         = "version"
	RunID           = "run_id"
	Source          = "source"
	CurrentStage    = "current_stage"
	Status          = "status"
	UserID          = "user_id"
	CreationTime    = "creation_time"
	LastUpdatedTime = "last_updated_time"
)

//nolint:gochecknoglobals
var searchableModelVersionAttributes = []string{
	Name, Version, RunID, Source, CurrentStage, Status, UserID, "creation_timestamp", "last_updated_timestamp",
}

func parseAttributeKey(key string) (string, error) {
	switch key {
	case Name, RunID, CurrentStage, Status, UserID:
		return key, nil
	case Version, "version_number":
		return Version, nil
	case Source, "source_path":
		return Source, nil
	case "creation_timestamp", CreationTime:
		return CreationTime, nil
	case "last_updated_timestamp", LastUpdatedTime:
		return LastUpdatedTime, nil
	default:
		return "", NewValidationError(
			"invalid attribute key %q. Allowed values are %v",
			key,
			searchableModelVersionAttributes,
		)
	}
}

// Returns a standardized identifier and key.
func validatedIdentifier(identifier *Identifier) (ValidIdentifier, string, error) {
	validIdentifier, err := parseValidIdentifier(identifier.Identifier)
	if err != nil {
		return -1, "", err
	}

	if validIdentifier == Tag {
		if identifier.Key == "" {
			return -1, "", NewValidationError("tag key must not be empty")
		}

		return Tag, identifier.Key, nil
	}

	validKey, err := parseAttributeKey(identifier.Key)
	if err != nil {
		return -1, "", err
	}

	identifier.Key = validKey

	return Attribute, validKey, nil
}

func isNumericAttribute(key string) bool {
	return key == Version || key == CreationTime || key == LastUpdatedTime
}

/*

The value part is determined by the identifier.

"tag" takes strings.

"attribute" takes numbers for "version" and the timestamps,
otherwise strings or, with IN and NOT IN, lists of strings.

*/

func validateValue(identifier ValidIdentifier, key string, operator OperatorKind, value Value) (any, error) {
	switch identifier {
	case Tag:
		if _, ok := value.(StringExpr); !ok {
			return nil, NewValidationError("expected a quoted string value for tag. Found %v", value)
		}

		if operator != Equals && operator != NotEquals && operator != Like && operator != ILike {
			return nil, NewValidationError("invalid comparator %s for tag", operator)
		}

		return value.value(), nil
	case Attribute:
		return validateAttributeValue(key, operator, value)
	default:
		return nil, NewValidationError("invalid identifier type %s", identifier)
	}
}

func validateAttributeValue(key string, operator OperatorKind, value Value) (any, error) {
	if isNumericAttribute(key) {
		switch typed := value.(type) {
		case NumberExpr:
			if operator == Like || operator == ILike {
				return nil, NewValidationError("invalid comparator %s for numeric attribute %s", operator, key)
			}

			return int64(typed.Value), nil
		case StringExpr:
			// version may be quoted since the API reports it as a string.
			if key == Version && (operator == Equals || operator == NotEquals) {
				return typed.Value, nil
			}
		}

		return nil, NewValidationError(
			"expected numeric value type for numeric attribute: %s. Found %v",
			key,
			value,
		)
	}

	switch value.(type) {
	case StringListExpr:
		if operator != In && operator != NotIn {
			return nil, NewValidationError("a list of values requires IN or NOT IN, got %s", operator)
		}
	case StringExpr:
		switch operator {
		case Equals, NotEquals, Like, ILike:
		default:
			return nil, NewValidationError("invalid comparator %s for string attribute %s", operator, key)
		}
	default:
		return nil, NewValidationError(
			"expected %s to be a string or a list of strings. Found %v",
			key,
			value,
		)
	}

	return value.value(), nil
}

// ValidateExpression type-checks an expression against the searchable
// fields of a model version.
func ValidateExpression(expression *CompareExpr) (*ValidCompareExpr, error) {
	validIdentifier, validKey, err := validatedIdentifier(&expression.Left)
	if err != nil {
		return nil, fmt.Errorf("error on parsing filter expression: %w", err)
	}

	value, err := validateValue(validIdentifier, validKey, expression.Operator, expression.Right)
	if err != nil {
		return nil, fmt.Errorf("error on parsing filter expression: %w", err)
	}

	return &ValidCompareExpr{
		Identifier: validIdentifier,
		Key:        validKey,
		Operator:   expression.Operator,
		Value:      value,
	}, nil
}

// Describe renders an expression back to filter syntax, used in error messages.
func (v *ValidCompareExpr) Describe() string {
	prefix := ""
	if v.Identifier == Tag {
		prefix = "tags."
	}

	return strings.TrimSpace(fmt.Sprintf("%s%s %s %v", prefix, v.Key, v.Operator, v.Value))
}
