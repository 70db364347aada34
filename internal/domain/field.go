package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yungbote/datakit-backend/internal/pkg/apperr"
)

// Field types a Model schema may declare. The type drives both which SQL
// storage class a generated column gets and whether the field is indexable
// at all.
const (
	FieldString      = "string"
	FieldEmail       = "email"
	FieldEnumeration = "enumeration"
	FieldBoolean     = "boolean"
	FieldInteger     = "integer"
	FieldFloat       = "float"
	FieldDecimal     = "decimal"
	FieldNumber      = "number"
	FieldDate        = "date"
	FieldDatetime    = "datetime"
	FieldTime        = "time"

	// Non-indexable: secrets, oversized free text, non-scalar shapes.
	FieldPassword = "password"
	FieldText     = "text"
	FieldRichText = "richtext"
	FieldJSON     = "json"
	FieldRelation = "relation"
	FieldMedia    = "media"
)

// Generated-column suffixes, derived from the field type.
const (
	SuffixNumeric  = "num"
	SuffixString   = "str"
	SuffixDatetime = "dt"
)

// DocumentFieldsKey is the key under which a Model version document stores
// its field-definition list.
const DocumentFieldsKey = "fields"

var (
	fieldIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

	// GeneratedColumnPattern is the strict allow-list any column name must
	// match before it may be interpolated into DDL. Field ids originate from
	// user input upstream, so nothing outside this pattern ever reaches the
	// database.
	GeneratedColumnPattern = regexp.MustCompile(`^v_[a-z][a-z0-9_]*_(num|str|dt)$`)
)

// FieldDefinition is one element of a Model version's field list.
type FieldDefinition struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Required bool           `json:"required,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// Indexable reports whether the field type can be mirrored into a single
// scalar generated column.
func (f FieldDefinition) Indexable() bool {
	switch f.Type {
	case FieldPassword, FieldText, FieldRichText, FieldJSON, FieldRelation, FieldMedia:
		return false
	}
	return true
}

// ColumnSuffix maps the field type onto its generated-column storage class.
func (f FieldDefinition) ColumnSuffix() string {
	switch f.Type {
	case FieldInteger, FieldFloat, FieldDecimal, FieldNumber:
		return SuffixNumeric
	case FieldDate, FieldDatetime, FieldTime:
		return SuffixDatetime
	default:
		return SuffixString
	}
}

// ColumnName derives the physical generated-column name for this field.
func (f FieldDefinition) ColumnName() string {
	return fmt.Sprintf("v_%s_%s", f.ID, f.ColumnSuffix())
}

// ValidFieldID reports whether an id is usable as a column-name component.
func ValidFieldID(id string) bool {
	return fieldIDPattern.MatchString(id)
}

// ValidGeneratedColumnName reports whether a name conforms to the
// v_<id>_<suffix> convention using only safe characters.
func ValidGeneratedColumnName(name string) bool {
	return GeneratedColumnPattern.MatchString(name)
}

// FieldsFromDocument extracts and validates the field-definition list from a
// Model version document. Each field must carry a string id and type; the id
// must be a safe slug. A missing fields key yields an empty list, not an
// error, so documents holding only display metadata stay valid.
func FieldsFromDocument(doc map[string]any) ([]FieldDefinition, error) {
	raw, ok := doc[DocumentFieldsKey]
	if !ok || raw == nil {
		return []FieldDefinition{}, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, &apperr.DefinitionError{Index: -1, Reason: "fields must be a list"}
	}
	out := make([]FieldDefinition, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &apperr.DefinitionError{Index: i, Reason: "field must be an object"}
		}
		id, ok := obj["id"].(string)
		if !ok || strings.TrimSpace(id) == "" {
			return nil, &apperr.DefinitionError{Index: i, Reason: "missing id"}
		}
		typ, ok := obj["type"].(string)
		if !ok || strings.TrimSpace(typ) == "" {
			return nil, &apperr.DefinitionError{Index: i, Reason: "missing type"}
		}
		if !ValidFieldID(id) {
			return nil, &apperr.DefinitionError{Index: i, Reason: fmt.Sprintf("id %q is not a valid slug", id)}
		}
		f := FieldDefinition{ID: id, Type: typ}
		if req, ok := obj["required"].(bool); ok {
			f.Required = req
		}
		if opts, ok := obj["options"].(map[string]any); ok {
			f.Options = opts
		}
		out = append(out, f)
	}
	return out, nil
}
