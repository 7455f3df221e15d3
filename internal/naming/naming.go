package naming

import (
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/go-openapi/inflect"
)

// ErrNotChildName is returned when a child entity name does not start with its parent's name.
var ErrNotChildName = errors.New("child name does not start with parent name")

// Sanitize replaces every character that is not a letter or a digit with an underscore.
func Sanitize(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

func underscore(name string) string {
	var sb strings.Builder
	sb.Grow(len(name) + 4)
	for _, r := range name {
		if unicode.IsUpper(r) {
			sb.WriteRune('_')
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(r)
		}
	}
	return strings.TrimLeft(sb.String(), "_")
}

// TableName returns the table name for an entity: the camel case name is split into
// lower case words separated by underscores and the result is pluralized.
// Pluralizing is not idempotent so callers should only call this once per entity name.
func TableName(entityName string) string {
	return inflect.Pluralize(underscore(entityName))
}

// RelationshipName returns the name of the relationship from parent to child, which is
// the child name with the parent prefix removed, lower cased.
func RelationshipName(parentName string, childName string) (string, error) {
	if !strings.HasPrefix(childName, parentName) {
		return "", errors.Wrapf(ErrNotChildName, "parent: %s, child: %s", parentName, childName)
	}
	return Sanitize(strings.ToLower(strings.TrimPrefix(childName, parentName))), nil
}

// ForeignKeyColumn returns the name of the column a child uses to reference its parent.
func ForeignKeyColumn(parentName string) string {
	return Sanitize(strings.ToLower(parentName)) + "_id"
}

// BaseEntityName returns the name of the root entity for a sensor type.
func BaseEntityName(sensorType string) string {
	return strings.ReplaceAll(sensorType, " ", "") + "Sensor"
}
