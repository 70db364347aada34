package domain

import (
	"errors"
	"testing"

	"github.com/yungbote/datakit-backend/internal/pkg/apperr"
)

func TestColumnNameBySuffix(t *testing.T) {
	cases := []struct {
		fieldType string
		want      string
	}{
		{FieldString, "v_f_str"},
		{FieldEmail, "v_f_str"},
		{FieldEnumeration, "v_f_str"},
		{FieldBoolean, "v_f_str"},
		{FieldInteger, "v_f_num"},
		{FieldFloat, "v_f_num"},
		{FieldDecimal, "v_f_num"},
		{FieldNumber, "v_f_num"},
		{FieldDate, "v_f_dt"},
		{FieldDatetime, "v_f_dt"},
		{FieldTime, "v_f_dt"},
	}
	for _, tc := range cases {
		f := FieldDefinition{ID: "f", Type: tc.fieldType}
		if got := f.ColumnName(); got != tc.want {
			t.Fatalf("type %s: column name = %q, want %q", tc.fieldType, got, tc.want)
		}
	}
}

func TestIndexable(t *testing.T) {
	for _, typ := range []string{FieldPassword, FieldText, FieldRichText, FieldJSON, FieldRelation, FieldMedia} {
		if (FieldDefinition{ID: "x", Type: typ}).Indexable() {
			t.Fatalf("type %s should not be indexable", typ)
		}
	}
	for _, typ := range []string{FieldString, FieldInteger, FieldDatetime, FieldBoolean} {
		if !(FieldDefinition{ID: "x", Type: typ}).Indexable() {
			t.Fatalf("type %s should be indexable", typ)
		}
	}
}

func TestValidGeneratedColumnName(t *testing.T) {
	valid := []string{"v_price_num", "v_title_str", "v_published_at_dt", "v_a_num"}
	for _, name := range valid {
		if !ValidGeneratedColumnName(name) {
			t.Fatalf("%q should be valid", name)
		}
	}
	invalid := []string{
		"",
		"price_num",
		"v_price",
		"v_price_int",
		"v_Price_num",
		"v_price_num ",
		"v_1price_num",
		`v_x_str"; drop table users; --`,
		"v_x_str; drop table entry_version",
	}
	for _, name := range invalid {
		if ValidGeneratedColumnName(name) {
			t.Fatalf("%q should be rejected", name)
		}
	}
}

func TestFieldsFromDocument(t *testing.T) {
	doc := map[string]any{
		"name": "article",
		"fields": []any{
			map[string]any{"id": "title", "type": "string", "required": true},
			map[string]any{"id": "price", "type": "decimal", "options": map[string]any{"min": 0.0}},
		},
	}
	fields, err := FieldsFromDocument(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(fields))
	}
	if fields[0].ID != "title" || fields[0].Type != "string" || !fields[0].Required {
		t.Fatalf("unexpected first field: %+v", fields[0])
	}
	if fields[1].Options["min"] != 0.0 {
		t.Fatalf("options not carried: %+v", fields[1])
	}
}

func TestFieldsFromDocumentMissingKey(t *testing.T) {
	fields, err := FieldsFromDocument(map[string]any{"name": "meta only"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields) != 0 {
		t.Fatalf("got %d fields, want 0", len(fields))
	}
}

func TestFieldsFromDocumentRejectsBadDefinitions(t *testing.T) {
	cases := []struct {
		name string
		doc  map[string]any
	}{
		{"fields not a list", map[string]any{"fields": "nope"}},
		{"field not an object", map[string]any{"fields": []any{"nope"}}},
		{"missing id", map[string]any{"fields": []any{map[string]any{"type": "string"}}}},
		{"missing type", map[string]any{"fields": []any{map[string]any{"id": "a"}}}},
		{"id not a slug", map[string]any{"fields": []any{map[string]any{"id": "Bad-ID", "type": "string"}}}},
		{"id with quote", map[string]any{"fields": []any{map[string]any{"id": `a"b`, "type": "string"}}}},
	}
	for _, tc := range cases {
		_, err := FieldsFromDocument(tc.doc)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !errors.Is(err, apperr.ErrInvalidDefinition) {
			t.Fatalf("%s: error %v should unwrap to ErrInvalidDefinition", tc.name, err)
		}
	}
}
