package sql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/query"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/query/parser"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/store/sql/model"
)

var modelVersionOrder = regexp.MustCompile(`^(?:attributes?\.)?(\w+)(?i:\s+(ASC|DESC))?$`)

// Only postgres understands ILIKE natively.
func (s *Store) lowerForILike(comparison string, column string, value any) (string, string, any) {
	if comparison != "ILIKE" || s.db.Dialector.Name() == "postgres" {
		return comparison, column, value
	}

	if str, ok := value.(string); ok {
		value = strings.ToLower(str)
	}

	return "LIKE", fmt.Sprintf("LOWER(%s)", column), value
}

//nolint:cyclop
func (s *Store) applyModelVersionFilters(transaction *gorm.DB, filter string) *contract.Error {
	filterConditions, err := query.ParseFilter(filter)
	if err != nil {
		return contract.NewErrorWith(
			contract.ErrorCodeInvalidParameterValue,
			"error parsing search filter",
			err,
		)
	}

	s.logger.Debugf("Filter conditions: %#v", filterConditions)

	for index, condition := range filterConditions {
		comparison := condition.Operator.String()
		value := condition.Value

		switch condition.Identifier {
		case parser.Attribute:
			if version, ok := value.(string); ok && condition.Key == parser.Version {
				parsed, err := strconv.ParseInt(version, 10, 32)
				if err != nil {
					return contract.NewError(
						contract.ErrorCodeInvalidParameterValue,
						fmt.Sprintf("invalid version %q in filter %s", version, condition.Describe()),
					)
				}

				value = parsed
			}

			column := s.db.Statement.Quote(clause.Column{Table: "model_versions", Name: condition.Key})
			comparison, column, value = s.lowerForILike(comparison, column, value)

			transaction.Where(fmt.Sprintf("%s %s ?", column, comparison), value)
		case parser.Tag:
			// JOIN (
			//   SELECT name, version FROM model_version_tags
			//   WHERE key = ? AND value <comparison> ?
			// ) AS filter_0
			// ON model_versions.name = filter_0.name AND model_versions.version = filter_0.version
			table := fmt.Sprintf("filter_%d", index)
			valueColumn := s.db.Statement.Quote("value")
			comparison, valueColumn, value = s.lowerForILike(comparison, valueColumn, value)

			transaction.Joins(
				fmt.Sprintf(
					"JOIN (?) AS %s ON model_versions.name = %s.name AND model_versions.version = %s.version",
					table, table, table,
				),
				s.db.Model(&model.ModelVersionTag{}).
					Select("name", "version").
					Where(map[string]any{"key": condition.Key}).
					Where(fmt.Sprintf("%s %s ?", valueColumn, comparison), value),
			)
		}
	}

	return nil
}

func parseOrderByColumn(key string) (string, bool) {
	switch key {
	case "name":
		return parser.Name, true
	case "version", "version_number":
		return parser.Version, true
	case "creation_timestamp", "creation_time":
		return parser.CreationTime, true
	case "last_updated_timestamp", "last_updated_time":
		return parser.LastUpdatedTime, true
	case "current_stage", "run_id", "source", "status":
		return key, true
	default:
		return "", false
	}
}

// Results are ordered by name ascending and version descending unless
// orderBy overrides it.
func applyModelVersionOrderBy(transaction *gorm.DB, orderBy []string) *contract.Error {
	seen := make(map[string]bool, len(orderBy))

	for _, orderByClause := range orderBy {
		components := modelVersionOrder.FindStringSubmatch(strings.TrimSpace(orderByClause))
		if components == nil {
			return contract.NewError(
				contract.ErrorCodeInvalidParameterValue,
				"invalid order by clause: "+orderByClause,
			)
		}

		column, ok := parseOrderByColumn(components[1])
		if !ok {
			return contract.NewError(
				contract.ErrorCodeInvalidParameterValue,
				fmt.Sprintf("invalid order by key %q", components[1]),
			)
		}

		seen[column] = true

		transaction.Order(clause.OrderByColumn{
			Column: clause.Column{Table: "model_versions", Name: column},
			Desc:   strings.EqualFold(components[2], "DESC"),
		})
	}

	if !seen[parser.Name] {
		transaction.Order(clause.OrderByColumn{Column: clause.Column{Table: "model_versions", Name: parser.Name}})
	}

	if !seen[parser.Version] {
		transaction.Order(clause.OrderByColumn{
			Column: clause.Column{Table: "model_versions", Name: parser.Version},
			Desc:   true,
		})
	}

	return nil
}
